package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"github.com/whatifmusic/beatwave/libs/auth/service"
	"go.uber.org/zap"
)

// ErrProfileNotFound is returned by a RoleLookup when the caller has no profile row
var ErrProfileNotFound = errors.New("profile not found")

// RoleLookup resolves the stored role of a user
type RoleLookup interface {
	// Method RoleByUserID returns the role stored in the user's profile.
	//
	// If the profile does not exist, ErrProfileNotFound is returned.
	RoleByUserID(ctx context.Context, userID string) (roles.Role, error)
}

// RoleMiddleware validates the access token, loads the caller's role from the profile store
// and rejects the request unless the role is one of allowed.
// The token never carries the role, so a role change takes effect on the next request.
func RoleMiddleware(tokenGenerator *service.TokenGenerator, lookup RoleLookup, logger *zap.Logger, allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, status, msg := resolveSession(r, tokenGenerator, lookup, logger)
			if status != 0 {
				writeError(w, status, msg)
				return
			}

			if !session.Role.In(allowed...) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RedirectGuard protects browser routes: anonymous visitors are redirected to loginPath,
// authenticated users without an allowed role to homePath
func RedirectGuard(tokenGenerator *service.TokenGenerator, lookup RoleLookup, logger *zap.Logger, loginPath, homePath string, allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, status, _ := resolveSession(r, tokenGenerator, lookup, logger)
			switch {
			case status == http.StatusUnauthorized:
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			case status != 0 || !session.Role.In(allowed...):
				http.Redirect(w, r, homePath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// resolveSession returns the caller's session or a non-zero HTTP status with a message
func resolveSession(r *http.Request, tokenGenerator *service.TokenGenerator, lookup RoleLookup, logger *zap.Logger) (Session, int, string) {
	token := ExtractToken(r)
	if token == "" {
		return Session{}, http.StatusUnauthorized, "authentication required"
	}

	userID, err := tokenGenerator.ValidateAccessToken(token)
	if err != nil {
		return Session{}, http.StatusUnauthorized, "invalid or expired token"
	}

	role, err := lookup.RoleByUserID(r.Context(), userID)
	if errors.Is(err, ErrProfileNotFound) {
		return Session{}, http.StatusForbidden, "profile not found"
	}
	if err != nil {
		logger.Error("failed to look up caller role", zap.String("user_id", userID), zap.Error(err))
		return Session{}, http.StatusInternalServerError, "failed to verify role"
	}

	return Session{UserID: userID, Role: role}, 0, ""
}
