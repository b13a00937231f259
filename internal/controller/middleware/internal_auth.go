package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminKey is the context key for the acting admin principal.
type adminKey struct{}

// RequireInternalAuth guards the admin surface with a shared bearer
// secret and requires an explicit acting principal via X-Admin-User.
// The principal is never defaulted; approve/reject/cancel record it.
func RequireInternalAuth(systemSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			token := parts[1]

			if subtle.ConstantTimeCompare([]byte(token), []byte(systemSecret)) != 1 {
				http.Error(w, "Invalid authorization token", http.StatusUnauthorized)
				return
			}

			admin := strings.TrimSpace(r.Header.Get("X-Admin-User"))
			if admin == "" {
				http.Error(w, "Missing X-Admin-User header", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminKey{}, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext extracts the acting admin principal from the context.
func AdminFromContext(ctx context.Context) (string, bool) {
	admin, ok := ctx.Value(adminKey{}).(string)
	return admin, ok
}
