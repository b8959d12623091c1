package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSPADir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0644))
	return dir
}

func TestSPAHandler(t *testing.T) {
	router := newRouter(NewSPAHandler(newSPADir(t), deny(http.StatusFound), zap.NewNop()))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "asset", target: "/assets/app.js", expectedStatus: http.StatusOK, expectedBody: "console.log(1)"},
		{name: "client route falls back to index", target: "/beats/some-id", expectedStatus: http.StatusOK, expectedBody: "<html>app</html>"},
		{name: "root", target: "/", expectedStatus: http.StatusOK, expectedBody: "<html>app</html>"},
		{name: "directory falls back to index", target: "/assets", expectedStatus: http.StatusOK, expectedBody: "<html>app</html>"},
		{name: "unknown api path", target: "/api/v1/nope", expectedStatus: http.StatusNotFound},
		{name: "dashboard is guarded", target: "/dashboard", expectedStatus: http.StatusFound},
		{name: "dashboard subpage is guarded", target: "/dashboard/users", expectedStatus: http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestSPAHandler_DashboardForStaff(t *testing.T) {
	router := newRouter(NewSPAHandler(newSPADir(t), withSession("admin-1", "admin"), zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/dashboard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())
}
