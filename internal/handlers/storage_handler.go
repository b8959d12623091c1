package handlers

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// FileService is the interface that wraps reading stored objects over HTTP.
type FileService interface {
	// Method OpenSigned opens an object if token is a valid, unexpired signature for it.
	//
	// A missing token yields apperrors.ErrUnauthenticated, a wrong or expired one apperrors.ErrForbidden.
	// The caller must close the returned file.
	OpenSigned(ctx context.Context, bucket, objectPath, token string) (*os.File, error)
	// Method OpenPublic opens an object of the public images bucket.
	OpenPublic(ctx context.Context, objectPath string) (*os.File, error)
}

// StorageHandler serves files from object storage
type StorageHandler struct {
	handlers.BaseHandler
	files FileService
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(files FileService, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		files:       files,
	}
}

// RegisterRoutes registers all storage handler routes
func (h *StorageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/storage/{bucket}/*", h.DownloadFile)
	r.Get("/images/*", h.GetImage)
}

// DownloadFile handles GET /storage/{bucket}/{path}
// @Summary Download a file with a signed link
// @Description Serve an object as an attachment. The link is produced by the download gate and expires quickly. Range requests are supported.
// @Tags storage
// @Produce application/octet-stream
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Param token query string true "Signature"
// @Param name query string false "Suggested file name"
// @Param Range header string false "Range"
// @Success 200 "File content"
// @Success 206 "Partial file content"
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /storage/{bucket}/{path} [get]
func (h *StorageHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	objectPath := chi.URLParam(r, "*")

	file, err := h.files.OpenSigned(r.Context(), chi.URLParam(r, "bucket"), objectPath, r.URL.Query().Get("token"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to open signed file")
		return
	}
	defer file.Close()

	name := r.URL.Query().Get("name")
	if name == "" {
		name = path.Base(objectPath)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Cache-Control", "private, no-store")

	h.serve(w, r, file)
}

// GetImage handles GET /images/{path}
// @Summary Get a public image
// @Tags storage
// @Produce image/png
// @Param path path string true "Object path"
// @Success 200 "Image content"
// @Failure 404 {object} handlers.ErrorResponse
// @Router /images/{path} [get]
func (h *StorageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.OpenPublic(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to open image")
		return
	}
	defer file.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	h.serve(w, r, file)
}

func (h *StorageHandler) serve(w http.ResponseWriter, r *http.Request, file *os.File) {
	info, err := file.Stat()
	if err != nil {
		h.Logger.Error("failed to get file info", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}
