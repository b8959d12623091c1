package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"github.com/whatifmusic/beatwave/libs/auth/service"
)

type contextKey string

const sessionKey contextKey = "session"

// AccessTokenCookie is the cookie holding the access token for browser clients
const AccessTokenCookie = "access_token"

// Session identifies the authenticated caller of a request.
// Role is empty unless a role guard loaded it from the caller's profile.
type Session struct {
	UserID string
	Role   roles.Role
}

// IsStaff reports whether the session may enter the dashboard
func (s Session) IsStaff() bool {
	return s.Role.In(roles.Staff...)
}

// AuthMiddleware validates JWT access token and stores the caller's Session
func AuthMiddleware(tokenGenerator *service.TokenGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := tokenGenerator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := WithSession(r.Context(), Session{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken reads the bearer token from the Authorization header, falling back to the cookie
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSession returns a copy of ctx carrying session
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession retrieves the caller's session from context
func GetSession(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	code := "unauthenticated"
	switch status {
	case http.StatusForbidden:
		code = "forbidden"
	case http.StatusInternalServerError:
		code = "internal"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
