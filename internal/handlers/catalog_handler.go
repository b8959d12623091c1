package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// CatalogService is the interface that wraps methods for public catalog queries.
type CatalogService interface {
	// Method GetBeats retrieves beats matching the filter, newest first.
	//
	// "filter" parameter holds the optional bpm, key, tags, title and creator constraints.
	//
	// If the filter is invalid, an error wrapping apperrors.ErrInvalidInput is returned.
	GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error)
	// Method GetRemixes retrieves every remix, newest first.
	GetRemixes(ctx context.Context) ([]models.ContentItem, error)
	// Method GetCoverArt retrieves every cover art entry, newest first.
	GetCoverArt(ctx context.Context) ([]models.ContentItem, error)
	// Method GetItem retrieves a single item.
	//
	// "typeParam" parameter is the collection name ("beats", "remixes", "cover-art").
	//
	// If the item does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetItem(ctx context.Context, typeParam, id string) (*models.ContentItem, error)
}

// CatalogHandler handles public catalog HTTP requests
type CatalogHandler struct {
	handlers.BaseHandler
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all catalog handler routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/beats", h.GetBeats)
	r.Get("/remixes", h.GetRemixes)
	r.Get("/cover-art", h.GetCoverArt)
	r.Get("/{type}/{id}", h.GetItem)
}

// GetBeats handles GET /beats
// @Summary List beats
// @Description Get beats, newest first. Every filter is optional; key, title and creator match case-insensitive substrings, tags match when any tag overlaps.
// @Tags catalog
// @Produce json
// @Param bpm query int false "Exact tempo"
// @Param key query string false "Musical key substring"
// @Param tags query string false "Comma separated tags"
// @Param title query string false "Title substring"
// @Param creator query string false "Producer substring"
// @Success 200 {array} models.ContentItem
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 500 {object} handlers.ErrorResponse
// @Router /beats [get]
func (h *CatalogHandler) GetBeats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := models.BeatFilter{
		Key:     query.Get("key"),
		Title:   query.Get("title"),
		Creator: query.Get("creator"),
		Tags:    splitList(query["tags"]),
	}

	if bpmStr := strings.TrimSpace(query.Get("bpm")); bpmStr != "" {
		bpm, err := strconv.Atoi(bpmStr)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "bpm must be an integer")
			return
		}
		filter.BPM = &bpm
	}

	beats, err := h.service.GetBeats(r.Context(), filter)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get beats")
		return
	}

	h.RespondJSON(w, http.StatusOK, nonNil(beats))
}

// GetRemixes handles GET /remixes
// @Summary List remixes
// @Tags catalog
// @Produce json
// @Success 200 {array} models.ContentItem
// @Failure 500 {object} handlers.ErrorResponse
// @Router /remixes [get]
func (h *CatalogHandler) GetRemixes(w http.ResponseWriter, r *http.Request) {
	remixes, err := h.service.GetRemixes(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to get remixes")
		return
	}

	h.RespondJSON(w, http.StatusOK, nonNil(remixes))
}

// GetCoverArt handles GET /cover-art
// @Summary List cover art
// @Tags catalog
// @Produce json
// @Success 200 {array} models.ContentItem
// @Failure 500 {object} handlers.ErrorResponse
// @Router /cover-art [get]
func (h *CatalogHandler) GetCoverArt(w http.ResponseWriter, r *http.Request) {
	coverArt, err := h.service.GetCoverArt(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to get cover art")
		return
	}

	h.RespondJSON(w, http.StatusOK, nonNil(coverArt))
}

// GetItem handles GET /{type}/{id}
// @Summary Get a catalog item
// @Tags catalog
// @Produce json
// @Param type path string true "beats, remixes or cover-art"
// @Param id path string true "Item ID"
// @Success 200 {object} models.ContentItem
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /{type}/{id} [get]
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to get item")
		return
	}

	h.RespondJSON(w, http.StatusOK, item)
}

// splitList flattens repeated and comma separated query values
func splitList(values []string) []string {
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// nonNil makes empty lists encode as [] instead of null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
