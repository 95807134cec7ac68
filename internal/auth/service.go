package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ClientMeta describes the terminal a login came from.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type Service struct {
	Store      *store.DB
	Cache      SessionCache
	Signer     *TokenSigner
	SessionTTL time.Duration
	Logger     *logger.Logger
}

func NewService(db *store.DB, cache SessionCache, signer *TokenSigner, ttl time.Duration, log *logger.Logger) *Service {
	if cache == nil {
		cache = NewMemorySessionCache()
	}
	return &Service{Store: db, Cache: cache, Signer: signer, SessionTTL: ttl, Logger: log}
}

// ---------------- LOGIN ----------------

func (s *Service) Login(ctx context.Context, req models.LoginRequest, meta ClientMeta) (*models.LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.Store.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		s.loginFailed(req.Username, meta, "unknown user")
		return nil, utils.Unauthorized("invalid username or PIN")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !comparePIN(user.PinHash, req.PIN) {
		s.loginFailed(req.Username, meta, "wrong PIN")
		return nil, utils.Unauthorized("invalid username or PIN")
	}
	if !user.IsActive {
		s.loginFailed(req.Username, meta, "inactive user")
		return nil, utils.Unauthorized("account is disabled")
	}

	now := utils.Now()
	session := &models.Session{
		ID:        utils.NewID(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.SessionTTL),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}
	if err := s.Store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.Signer.Sign(user.ID, session.ID, user.Role, now, session.ExpiresAt)
	if err != nil {
		return nil, utils.Internal("failed to sign token", err)
	}

	s.cache(ctx, session, user)
	metrics.RecordLogin("success")
	s.Logger.LogSecurity("login", fmt.Sprintf("user=%s role=%s ip=%s", user.Username, user.Role, meta.IP))

	return &models.LoginResponse{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *Service) loginFailed(username string, meta ClientMeta, reason string) {
	metrics.RecordLogin("failure")
	s.Logger.LogSecurity("login_failed", fmt.Sprintf("user=%s ip=%s reason=%s", username, meta.IP, reason))
}

// ---------------- VERIFY ----------------

// Verify resolves a bearer token to the principal of a live session.
func (s *Service) Verify(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.Signer.Parse(token)
	if err != nil {
		return nil, utils.Unauthorized("invalid or expired token")
	}

	if cached, err := s.Cache.Get(ctx, claims.SessionID); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("session cache read failed: %v", err))
	} else if cached != nil && cached.Principal.UserID == claims.Subject {
		p := cached.Principal
		return &p, nil
	}

	session, err := s.Store.GetSession(ctx, claims.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.Unauthorized("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.Subject || !session.Active(utils.Now()) {
		return nil, utils.Unauthorized("session expired or revoked")
	}

	user, err := s.Store.GetUser(ctx, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, utils.Unauthorized("account is disabled")
	}

	p := s.cache(ctx, session, user)
	return &p, nil
}

func (s *Service) cache(ctx context.Context, session *models.Session, user *models.User) models.Principal {
	p := models.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      user.Role,
		SessionID: session.ID,
	}
	if err := s.Cache.Set(ctx, session.ID, &CachedSession{Principal: p, ExpiresAt: session.ExpiresAt}); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("session cache write failed: %v", err))
	}
	return p
}

// ---------------- LOGOUT / REVOKE ----------------

func (s *Service) Logout(ctx context.Context, p *models.Principal) error {
	if _, err := s.Store.RevokeSession(ctx, p.SessionID, utils.Now()); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if err := s.Cache.Delete(ctx, p.SessionID); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("session cache delete failed: %v", err))
	}
	s.Logger.LogSecurity("logout", "user="+p.Username)
	return nil
}

// RevokeUser ends every session of a user, e.g. after deactivation or a PIN reset.
func (s *Service) RevokeUser(ctx context.Context, userID string) error {
	ids, err := s.Store.RevokeUserSessions(ctx, userID, utils.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if err := s.Cache.Delete(ctx, ids...); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("session cache delete failed: %v", err))
	}
	return nil
}

// ---------------- PIN ----------------

// ChangePIN lets a signed-in user replace their own PIN.
func (s *Service) ChangePIN(ctx context.Context, userID string, req models.ChangePINRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if err := ValidatePIN(req.NewPIN); err != nil {
		return err
	}

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !comparePIN(user.PinHash, req.CurrentPIN) {
		s.Logger.LogSecurity("pin_change_failed", "user="+user.Username)
		return utils.Validation("current PIN is incorrect")
	}

	hash, err := HashPIN(req.NewPIN)
	if err != nil {
		return err
	}
	if _, err := s.Store.UpdateUserPIN(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update PIN: %w", err)
	}
	s.Logger.LogSecurity("pin_changed", "user="+user.Username)
	return nil
}

// SetPIN is the admin reset. Existing sessions of the user are revoked.
func (s *Service) SetPIN(ctx context.Context, userID, pin string) error {
	hash, err := HashPIN(pin)
	if err != nil {
		return err
	}
	n, err := s.Store.UpdateUserPIN(ctx, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to update PIN: %w", err)
	}
	if n == 0 {
		return utils.NotFound("employee %s not found", userID)
	}
	s.Logger.LogSecurity("pin_reset", "user_id="+userID)
	return s.RevokeUser(ctx, userID)
}

// PurgeSessions removes sessions that expired or were revoked more than
// retain ago. Cached entries lapse on their own TTL.
func (s *Service) PurgeSessions(ctx context.Context, retain time.Duration) (int64, error) {
	n, err := s.Store.PurgeSessions(ctx, utils.Now().Add(-retain))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		s.Logger.Info("AUTH", fmt.Sprintf("Purged %d stale session(s)", n))
	}
	return n, nil
}
