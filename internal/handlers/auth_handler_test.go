package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"go.uber.org/zap"
)

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func newAuthRouter(svc *mockAuthService, authMw func(http.Handler) http.Handler) http.Handler {
	return newRouter(NewAuthHandler(svc, authMw, time.Hour, 7*24*time.Hour, zap.NewNop()))
}

func TestAuthHandler_SignIn(t *testing.T) {
	t.Run("sets http only cookies", func(t *testing.T) {
		svc := &mockAuthService{accessToken: "access", refreshToken: "refresh"}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/sign-in", models.SignInRequest{Email: "a@b.co", Password: "Secret1!"})

		assert.Equal(t, http.StatusOK, w.Code)
		cookies := cookiesByName(w)
		require.Contains(t, cookies, middleware.AccessTokenCookie)
		require.Contains(t, cookies, refreshTokenCookie)
		assert.Equal(t, "access", cookies[middleware.AccessTokenCookie].Value)
		assert.Equal(t, 3600, cookies[middleware.AccessTokenCookie].MaxAge)
		assert.Equal(t, "refresh", cookies[refreshTokenCookie].Value)
		assert.True(t, cookies[refreshTokenCookie].HttpOnly)
		assert.NotContains(t, w.Body.String(), "access")
	})

	t.Run("wrong credentials", func(t *testing.T) {
		svc := &mockAuthService{err: fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthenticated)}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/sign-in", models.SignInRequest{Email: "a@b.co", Password: "x"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newAuthRouter(&mockAuthService{}, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/sign-in", "{not json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_SignUp(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		svc := &mockAuthService{err: fmt.Errorf("%w: email already registered", apperrors.ErrConflict)}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/sign-up", models.SignUpRequest{Email: "a@b.co", Password: "Secret1!"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("created", func(t *testing.T) {
		svc := &mockAuthService{accessToken: "a", refreshToken: "r"}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/sign-up", models.SignUpRequest{Email: "a@b.co", Password: "Secret1!"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, w.Result().Cookies(), 2)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("token from cookie", func(t *testing.T) {
		svc := &mockAuthService{accessToken: "new-access", refreshToken: "new-refresh"}
		router := newAuthRouter(svc, withSession("u1", ""))

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "old-refresh"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "old-refresh", svc.lastRefresh)
		assert.Equal(t, "new-refresh", cookiesByName(w)[refreshTokenCookie].Value)
	})

	t.Run("body wins over cookie", func(t *testing.T) {
		svc := &mockAuthService{accessToken: "a", refreshToken: "r"}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: "from-body"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "from-body", svc.lastRefresh)
	})

	t.Run("missing token", func(t *testing.T) {
		svc := &mockAuthService{}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/refresh", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, svc.lastRefresh)
	})

	t.Run("rejected token clears cookies", func(t *testing.T) {
		svc := &mockAuthService{err: fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthenticated)}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: "stale"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		cookies := cookiesByName(w)
		require.Contains(t, cookies, refreshTokenCookie)
		assert.Equal(t, -1, cookies[refreshTokenCookie].MaxAge)
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	svc := &mockAuthService{}
	router := newAuthRouter(svc, withSession("u1", ""))

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "refresh"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refresh", svc.lastSignOut)
	for _, c := range w.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}
}

func TestAuthHandler_Session(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		svc := &mockAuthService{session: &models.SessionResponse{
			UserID:  "u1",
			Email:   "a@b.co",
			Profile: &models.Profile{ID: "u1", Role: roles.RoleEditor},
		}}
		router := newAuthRouter(svc, withSession("u1", ""))

		w := doRequest(t, router, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[models.SessionResponse](t, w)
		assert.Equal(t, "a@b.co", resp.Email)
		require.NotNil(t, resp.Profile)
		assert.Equal(t, roles.RoleEditor, resp.Profile.Role)
	})

	t.Run("anonymous", func(t *testing.T) {
		router := newAuthRouter(&mockAuthService{}, deny(http.StatusUnauthorized))

		w := doRequest(t, router, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
