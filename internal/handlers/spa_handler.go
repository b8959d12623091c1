package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// SPAHandler serves the built single page app. Unknown paths fall back to index.html
// so client side routes survive a reload.
type SPAHandler struct {
	handlers.BaseHandler
	dir            string
	dashboardGuard func(http.Handler) http.Handler
}

// NewSPAHandler creates a new SPA handler serving dir
func NewSPAHandler(dir string, dashboardGuard func(http.Handler) http.Handler, logger *zap.Logger) *SPAHandler {
	return &SPAHandler{
		BaseHandler:    handlers.BaseHandler{Logger: logger},
		dir:            dir,
		dashboardGuard: dashboardGuard,
	}
}

// RegisterRoutes registers the SPA on the root router. It must be registered after the API routes.
func (h *SPAHandler) RegisterRoutes(r chi.Router) {
	r.With(h.dashboardGuard).Get("/dashboard", h.Serve)
	r.With(h.dashboardGuard).Get("/dashboard/*", h.Serve)
	r.Get("/*", h.Serve)
}

// Serve writes the requested asset, or index.html when no such file exists
func (h *SPAHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(name, "/api/") || strings.HasPrefix(name, "/functions/") {
		h.RespondError(w, http.StatusNotFound, "not found")
		return
	}

	fullPath := filepath.Join(h.dir, filepath.FromSlash(name))
	info, err := os.Stat(fullPath)
	switch {
	case err == nil && !info.IsDir():
		http.ServeFile(w, r, fullPath)
		return
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		h.Logger.Error("failed to stat static file", zap.String("path", name), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// index.html must never be cached, assets carry hashed names
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}
