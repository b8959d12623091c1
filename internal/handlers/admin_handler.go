package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20

// ContentService is the interface that wraps catalog management for staff.
type ContentService interface {
	// Method List retrieves every item of a collection, newest first.
	//
	// "typeParam" parameter is the collection name ("beats", "remixes", "cover-art").
	List(ctx context.Context, typeParam string) ([]models.ContentItem, error)
	// Method Create validates and inserts a new item and returns it.
	//
	// Missing title, creator or file path yields apperrors.ErrInvalidInput.
	Create(ctx context.Context, typeParam string, req *models.ContentRequest) (*models.ContentItem, error)
	// Method Update applies the non-nil fields of req and returns the stored item.
	Update(ctx context.Context, typeParam, id string, req *models.ContentRequest) (*models.ContentItem, error)
	// Method Delete removes the item and, best effort, its stored file.
	Delete(ctx context.Context, typeParam, id string) error
}

// StatsService is the interface that wraps the dashboard overview.
type StatsService interface {
	// Method GetStats returns the catalog, download and subscriber counts.
	GetStats(ctx context.Context) (*models.Stats, error)
}

// UploadService is the interface that wraps file uploads.
type UploadService interface {
	// Method Upload stores r as a new object of bucket and returns its location.
	//
	// "originalName" parameter is only used for its extension.
	// "contentType" parameter is used when the name carries no extension.
	Upload(ctx context.Context, bucket, originalName, contentType string, r io.Reader) (*models.UploadResponse, error)
}

// AdminHandler handles the dashboard endpoints. Every route requires an editor or admin.
type AdminHandler struct {
	handlers.BaseHandler
	content ContentService
	stats   StatsService
	uploads UploadService
	guard   func(http.Handler) http.Handler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(content ContentService, stats StatsService, uploads UploadService, staffGuard func(http.Handler) http.Handler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		content:     content,
		stats:       stats,
		uploads:     uploads,
		guard:       staffGuard,
	}
}

// RegisterRoutes registers all admin handler routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.guard)

		r.Get("/stats", h.GetStats)
		r.Post("/storage/{bucket}", h.UploadFile)

		r.Route("/content/{type}", func(r chi.Router) {
			r.Get("/", h.ListContent)
			r.Post("/", h.CreateContent)
			r.Patch("/{id}", h.UpdateContent)
			r.Delete("/{id}", h.DeleteContent)
		})
	})
}

// GetStats handles GET /admin/stats
// @Summary Dashboard overview
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Stats
// @Failure 403 {object} handlers.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to get stats")
		return
	}

	h.RespondJSON(w, http.StatusOK, stats)
}

// ListContent handles GET /admin/content/{type}
// @Summary List a collection
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type path string true "beats, remixes or cover-art"
// @Success 200 {array} models.ContentItem
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Router /admin/content/{type} [get]
func (h *AdminHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.content.List(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to list content")
		return
	}

	h.RespondJSON(w, http.StatusOK, nonNil(items))
}

// CreateContent handles POST /admin/content/{type}
// @Summary Create an item
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "beats, remixes or cover-art"
// @Param request body models.ContentRequest true "Item fields"
// @Success 201 {object} models.ContentItem
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Router /admin/content/{type} [post]
func (h *AdminHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req models.ContentRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.content.Create(r.Context(), chi.URLParam(r, "type"), &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create content")
		return
	}

	h.RespondJSON(w, http.StatusCreated, item)
}

// UpdateContent handles PATCH /admin/content/{type}/{id}
// @Summary Update an item
// @Description Only the provided fields change.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "beats, remixes or cover-art"
// @Param id path string true "Item ID"
// @Param request body models.ContentRequest true "Changed fields"
// @Success 200 {object} models.ContentItem
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /admin/content/{type}/{id} [patch]
func (h *AdminHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req models.ContentRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	item, err := h.content.Update(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to update content")
		return
	}

	h.RespondJSON(w, http.StatusOK, item)
}

// DeleteContent handles DELETE /admin/content/{type}/{id}
// @Summary Delete an item
// @Tags admin
// @Security BearerAuth
// @Param type path string true "beats, remixes or cover-art"
// @Param id path string true "Item ID"
// @Success 204 "Item deleted"
// @Failure 404 {object} handlers.ErrorResponse
// @Router /admin/content/{type}/{id} [delete]
func (h *AdminHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id")); err != nil {
		h.RespondServiceError(w, err, "failed to delete content")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadFile handles POST /admin/storage/{bucket}
// @Summary Upload a file
// @Description Store a file under a generated name. Use the returned path as the item's file_path.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param bucket path string true "beats, remixes, cover_art or images"
// @Param file formData file true "File to upload"
// @Success 201 {object} models.UploadResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 413 {object} handlers.ErrorResponse
// @Router /admin/storage/{bucket} [post]
func (h *AdminHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.Logger.Debug("failed to parse multipart form", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		contentType = ""
	}

	resp, err := h.uploads.Upload(r.Context(), chi.URLParam(r, "bucket"), fileHeader.Filename, contentType, file)
	if err != nil {
		h.RespondServiceError(w, err, "failed to upload file")
		return
	}

	h.RespondJSON(w, http.StatusCreated, resp)
}
