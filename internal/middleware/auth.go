package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/Vasu1712/lounge-backend/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func Authenticate(tokens *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respond.Message(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Verify(token)
			if err != nil {
				respond.Message(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok || claims.Role != models.RoleAdmin {
			respond.Message(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
