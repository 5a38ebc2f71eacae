package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedUserContextKey = ContextKey("authenticatedUser")

	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"
)

// AuthenticatedUser holds the identity forwarded by the API gateway.
type AuthenticatedUser struct {
	ID      string
	Role    string
	IsAdmin bool
}

// UserFromContext extracts the authenticated user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	return user, ok
}

// AuthMiddleware reads the identity headers set by the gateway, which
// terminates authentication upstream. Requests without a user ID are
// rejected.
func AuthMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if userID == "" {
				logger.WarnContext(r.Context(), "Identity header missing", "header", userIDHeader)
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			role := strings.ToLower(strings.TrimSpace(r.Header.Get(userRoleHeader)))
			authUser := AuthenticatedUser{
				ID:      userID,
				Role:    role,
				IsAdmin: role == "admin",
			}

			ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers. It must run after AuthMiddleware.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			if !user.IsAdmin {
				logger.WarnContext(r.Context(), "Admin route denied", "user_id", user.ID, "role", user.Role)
				http.Error(w, "Admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
