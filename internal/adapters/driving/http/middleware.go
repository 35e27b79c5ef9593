package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Context keys
type contextKey string

const userIDContextKey contextKey = "user_id"

// SessionCookieName is the cookie carrying the session token when no
// Authorization header is present.
const SessionCookieName = "graphgate_session"

// AuthMiddleware resolves the authenticated user for each request. The
// userID it extracts is threaded explicitly into every service call; nothing
// downstream reads an ambient principal.
type AuthMiddleware struct {
	sessions driven.SessionTokens
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(sessions driven.SessionTokens) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate validates the session token and adds the user ID to the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractSessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		userID, err := m.sessions.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the authenticated user ID from the request context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

// extractSessionToken reads the session token from the Authorization header
// or the session cookie.
func extractSessionToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
