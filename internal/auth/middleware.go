package auth

import (
	"context"
	"net/http"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware authenticates the bearer token and stores the principal in the context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken, err := ExtractTokenFromRequest(r)
		if err != nil {
			utils.WriteError(w, utils.Unauthorized(err.Error()))
			return
		}

		p, err := s.Verify(r.Context(), rawToken)
		if err != nil {
			if !utils.IsCategory(err, utils.CategoryUnauthorized) {
				s.Logger.Error("AUTH", "token verification failed: "+err.Error())
			}
			utils.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequirePermission rejects callers whose role lacks capability.
func RequirePermission(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				utils.WriteError(w, utils.Unauthorized("authentication required"))
				return
			}
			if !Can(p.Role, capability) {
				utils.WriteError(w, utils.Forbidden("missing permission "+capability))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated caller.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok && p != nil
}

// UserID returns the caller's user ID or "".
func UserID(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.UserID
	}
	return ""
}
