// internal/auth/middleware.go
package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notes-saas/internal/api/render"
	"notes-saas/internal/apperr"
	"notes-saas/internal/logger"
	"notes-saas/internal/model"
	"notes-saas/internal/tenancy"
)

var (
	errNoToken = &apperr.Error{
		Code: apperr.EUnauthorized,
		Msg:  "Access denied. No token provided.",
	}
	errBadToken = &apperr.Error{
		Code: apperr.EUnauthorized,
		Msg:  "Invalid or expired token.",
	}
)

type Middleware struct {
	tokens   *TokenManager
	resolver *tenancy.Resolver
}

func NewMiddleware(tokens *TokenManager, resolver *tenancy.Resolver) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver}
}

// Authenticate verifies the bearer token, resolves the acting tenant and
// attaches the isolation scope to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			render.Error(w, r, errNoToken)
			return
		}

		claims, err := m.tokens.ValidateToken(tokenStr)
		if err != nil {
			render.Error(w, r, errBadToken)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			render.Error(w, r, errBadToken)
			return
		}

		scope, err := m.resolver.Resolve(r.Context(), userID)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		log := logger.FromContext(r.Context()).With(
			zap.Stringer("tenant_id", scope.TenantID()),
			zap.Stringer("user_id", scope.UserID()),
		)
		ctx := tenancy.WithScope(r.Context(), scope)
		ctx = logger.WithContext(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose resolved user lacks every one of
// roles. It must be mounted after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := tenancy.RequireRole(tenancy.FromContext(r.Context()), roles...); err != nil {
				render.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
