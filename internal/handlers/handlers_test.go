package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/services"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
)

// routeHandler is implemented by every handler of this package
type routeHandler interface {
	RegisterRoutes(r chi.Router)
}

func newRouter(h routeHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// withSession is a guard that authenticates every request as userID with role
func withSession(userID string, role roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithSession(r.Context(), middleware.Session{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny is a guard that rejects every request with status
func deny(status int) func(http.Handler) http.Handler {
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
	}
}

// mockCatalogService is a mock implementation of CatalogService
type mockCatalogService struct {
	beats      []models.ContentItem
	item       *models.ContentItem
	err        error
	lastFilter models.BeatFilter
	lastType   string
}

func (m *mockCatalogService) GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error) {
	m.lastFilter = filter
	return m.beats, m.err
}

func (m *mockCatalogService) GetRemixes(ctx context.Context) ([]models.ContentItem, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetCoverArt(ctx context.Context) ([]models.ContentItem, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetItem(ctx context.Context, typeParam, id string) (*models.ContentItem, error) {
	m.lastType = typeParam
	return m.item, m.err
}

// mockAuthService is a mock implementation of AuthService
type mockAuthService struct {
	accessToken  string
	refreshToken string
	session      *models.SessionResponse
	err          error
	lastRefresh  string
	lastSignOut  string
}

func (m *mockAuthService) SignUp(ctx context.Context, req *models.SignUpRequest) (string, string, error) {
	return m.accessToken, m.refreshToken, m.err
}

func (m *mockAuthService) SignIn(ctx context.Context, req *models.SignInRequest) (string, string, error) {
	return m.accessToken, m.refreshToken, m.err
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	m.lastRefresh = refreshToken
	return m.accessToken, m.refreshToken, m.err
}

func (m *mockAuthService) SignOut(ctx context.Context, refreshToken string) error {
	m.lastSignOut = refreshToken
	return m.err
}

func (m *mockAuthService) Session(ctx context.Context, userID string) (*models.SessionResponse, error) {
	return m.session, m.err
}

// mockGateService is a mock implementation of GateService
type mockGateService struct {
	view      *models.GateView
	download  *models.GateDownloadResponse
	err       error
	lastUA    string
	lastIP    string
	lastMode  string
	closedIDs []string
}

func (m *mockGateService) Open(ctx context.Context, req *models.OpenGateRequest) (*models.GateView, error) {
	return m.view, m.err
}

func (m *mockGateService) Get(ctx context.Context, id string) (*models.GateView, error) {
	return m.view, m.err
}

func (m *mockGateService) SelectMethod(ctx context.Context, id, method string) (*models.GateView, error) {
	m.lastMode = method
	return m.view, m.err
}

func (m *mockGateService) UpdateEmail(ctx context.Context, id string, req *models.GateEmailRequest) (*models.GateView, error) {
	return m.view, m.err
}

func (m *mockGateService) Download(ctx context.Context, id, userAgent, ipAddress string) (*models.GateDownloadResponse, error) {
	m.lastUA, m.lastIP = userAgent, ipAddress
	return m.download, m.err
}

func (m *mockGateService) Close(ctx context.Context, id string) error {
	m.closedIDs = append(m.closedIDs, id)
	return m.err
}

// mockAdminService is a mock implementation of AdminService
type mockAdminService struct {
	users      []models.UserWithRole
	err        error
	lastCaller string
	lastRole   *models.ManageUserRoleRequest
	lastDelete *models.DeleteUserRequest
}

func (m *mockAdminService) ListUsersWithRoles(ctx context.Context) ([]models.UserWithRole, error) {
	return m.users, m.err
}

func (m *mockAdminService) ManageUserRole(ctx context.Context, callerID string, req *models.ManageUserRoleRequest) error {
	m.lastCaller, m.lastRole = callerID, req
	return m.err
}

func (m *mockAdminService) DeleteUser(ctx context.Context, callerID string, req *models.DeleteUserRequest) error {
	m.lastCaller, m.lastDelete = callerID, req
	return m.err
}

// mockStorageFilesService is a mock implementation of StorageFilesService
type mockStorageFilesService struct {
	files      []models.StorageObject
	err        error
	lastDelete *models.DeleteStorageFileRequest
}

func (m *mockStorageFilesService) ListFiles(ctx context.Context) ([]models.StorageObject, error) {
	return m.files, m.err
}

func (m *mockStorageFilesService) DeleteFile(ctx context.Context, req *models.DeleteStorageFileRequest) error {
	m.lastDelete = req
	return m.err
}

// mockDownloadService is a mock implementation of DownloadService
type mockDownloadService struct {
	resp        *models.RecordDownloadResponse
	created     bool
	err         error
	lastRequest *models.RecordDownloadRequest
	lastIP      string
	lastEmail   string
}

func (m *mockDownloadService) Record(ctx context.Context, req *models.RecordDownloadRequest, ipAddress string) (*models.RecordDownloadResponse, error) {
	m.lastRequest, m.lastIP = req, ipAddress
	return m.resp, m.err
}

func (m *mockDownloadService) Subscribe(ctx context.Context, email string) (bool, error) {
	m.lastEmail = email
	return m.created, m.err
}

// mockSeedService is a mock implementation of SeedService
type mockSeedService struct {
	result *services.SeedResult
	err    error
}

func (m *mockSeedService) Seed(ctx context.Context) (*services.SeedResult, error) {
	return m.result, m.err
}

// mockFileService is a mock implementation of FileService backed by a directory
type mockFileService struct {
	dir       string
	err       error
	lastToken string
}

func (m *mockFileService) OpenSigned(ctx context.Context, bucket, objectPath, token string) (*os.File, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return os.Open(m.dir + "/" + bucket + "/" + objectPath)
}

func (m *mockFileService) OpenPublic(ctx context.Context, objectPath string) (*os.File, error) {
	if m.err != nil {
		return nil, m.err
	}
	return os.Open(m.dir + "/images/" + objectPath)
}
