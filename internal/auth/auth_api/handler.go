package auth_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	Auth    *auth.Service
	Limiter *auth.RateLimiter
	Logger  *logger.Logger
}

func NewHandler(svc *auth.Service, limiter *auth.RateLimiter, log *logger.Logger) *Handler {
	return &Handler{Auth: svc, Limiter: limiter, Logger: log}
}

// Routes mounts under /api/auth.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.Limiter.Handler).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Middleware)
		r.Get("/verify", h.Verify)
		r.Post("/logout", h.Logout)
		r.Put("/pin", h.ChangePIN)
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	resp, err := h.Auth.Login(r.Context(), req, auth.ClientMeta{IP: auth.ClientIP(r), UserAgent: r.UserAgent()})
	if err != nil {
		utils.Fail(w, h.Logger, "Login", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Login successful", resp)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	utils.WriteSuccess(w, http.StatusOK, "Token is valid", map[string]interface{}{
		"user":        p,
		"permissions": auth.Permissions(p.Role),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	if err := h.Auth.Logout(r.Context(), p); err != nil {
		utils.Fail(w, h.Logger, "Logout", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePINRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Auth.ChangePIN(r.Context(), auth.UserID(r.Context()), req); err != nil {
		utils.Fail(w, h.Logger, "ChangePIN", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "PIN updated", nil)
}
