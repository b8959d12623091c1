package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method SignUp validates the credentials, creates the user with a "user" profile
	// and returns access and refresh tokens.
	//
	// If the email is taken, an error wrapping apperrors.ErrConflict is returned.
	SignUp(ctx context.Context, req *models.SignUpRequest) (string, string, error)
	// Method SignIn validates the credentials and returns access and refresh tokens.
	//
	// If the credentials are wrong, an error wrapping apperrors.ErrUnauthenticated is returned.
	SignIn(ctx context.Context, req *models.SignInRequest) (string, string, error)
	// Method Refresh exchanges a refresh token for a new token pair.
	//
	// If refresh token is invalid or expired, an error wrapping apperrors.ErrUnauthenticated is returned.
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	// Method SignOut revokes the refresh token.
	SignOut(ctx context.Context, refreshToken string) error
	// Method Session returns the identity and profile of "userID".
	Session(ctx context.Context, userID string) (*models.SessionResponse, error)
}

const refreshTokenCookie = "refresh_token"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	handlers.BaseHandler
	authService    AuthService
	authMiddleware func(http.Handler) http.Handler
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

// NewAuthHandler creates a new auth handler.
//
// accessTTL and refreshTTL set the cookie lifetimes and should match the token expiries.
func NewAuthHandler(
	authService AuthService,
	authMiddleware func(http.Handler) http.Handler,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler:    handlers.BaseHandler{Logger: logger},
		authService:    authService,
		authMiddleware: authMiddleware,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

// RegisterRoutes registers all auth handler routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", h.SignUp)
		r.Post("/sign-in", h.SignIn)
		r.Post("/refresh", h.Refresh)
		r.Post("/sign-out", h.SignOut)
		r.With(h.authMiddleware).Get("/session", h.Session)
	})
}

// SignUp handles POST /auth/sign-up
// @Summary Sign up
// @Description Create an account. The password needs 8+ characters with upper and lower case letters, a digit and a special character. Tokens are returned as HTTP-only cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignUpRequest true "Sign-up request"
// @Success 201 {object} map[string]string
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse "Email already registered"
// @Router /auth/sign-up [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	accessToken, refreshToken, err := h.authService.SignUp(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to sign up")
		return
	}

	h.setTokenCookies(w, accessToken, refreshToken)
	h.RespondJSON(w, http.StatusCreated, map[string]string{"message": "user registered successfully"})
}

// SignIn handles POST /auth/sign-in
// @Summary Sign in
// @Description Authenticate with email and password. Tokens are returned as HTTP-only cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignInRequest true "Sign-in request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse "Invalid credentials"
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	accessToken, refreshToken, err := h.authService.SignIn(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to sign in")
		return
	}

	h.setTokenCookies(w, accessToken, refreshToken)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "login successful"})
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh
// @Summary Refresh tokens
// @Description Rotate the refresh token. The token can be provided in the body or as a cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Refresh token request (optional if using cookie)"
// @Success 200 {object} map[string]string
// @Failure 401 {object} handlers.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshToken(r)
	if refreshToken == "" {
		h.RespondError(w, http.StatusUnauthorized, "refresh token required")
		return
	}

	accessToken, newRefreshToken, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.clearTokenCookies(w)
		h.RespondServiceError(w, err, "failed to refresh tokens")
		return
	}

	h.setTokenCookies(w, accessToken, newRefreshToken)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "tokens refreshed successfully"})
}

// SignOut handles POST /auth/sign-out
// @Summary Sign out
// @Description Revoke the refresh token and clear the auth cookies
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} handlers.ErrorResponse
// @Router /auth/sign-out [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), h.refreshToken(r)); err != nil {
		h.RespondServiceError(w, err, "failed to sign out")
		return
	}

	h.clearTokenCookies(w)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// Session handles GET /auth/session
// @Summary Current session
// @Description Get the signed in user with its profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	resp, err := h.authService.Session(r.Context(), session.UserID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get session")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}

// refreshToken reads the refresh token from the JSON body, falling back to the cookie
func (h *AuthHandler) refreshToken(r *http.Request) string {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}

	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// setTokenCookies sets access and refresh tokens as HTTP-only cookies
func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, tokenCookie(middleware.AccessTokenCookie, accessToken, int(h.accessTTL.Seconds())))
	http.SetCookie(w, tokenCookie(refreshTokenCookie, refreshToken, int(h.refreshTTL.Seconds())))
}

// clearTokenCookies expires both auth cookies
func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, tokenCookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, tokenCookie(refreshTokenCookie, "", -1))
}

func tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
