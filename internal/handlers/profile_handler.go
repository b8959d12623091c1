package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// ProfileService is the interface that wraps methods for the caller's own profile.
type ProfileService interface {
	// Method GetProfile retrieves the profile of "userID".
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// Method UpdateProfile updates display name and avatar of "userID" and returns the updated profile.
	//
	// If nothing is provided or a value is invalid, an error wrapping apperrors.ErrInvalidInput is returned.
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.Profile, error)
}

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	handlers.BaseHandler
	service        ProfileService
	authMiddleware func(http.Handler) http.Handler
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(svc ProfileService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    handlers.BaseHandler{Logger: logger},
		service:        svc,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all profile handler routes
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Get("/", h.GetProfile)
		r.Patch("/", h.UpdateProfile)
	})
}

// GetProfile handles GET /profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	profile, err := h.service.GetProfile(r.Context(), session.UserID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get profile")
		return
	}

	h.RespondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /profile
// @Summary Update own profile
// @Description Update display name and avatar URL. The role can not be changed here.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 401 {object} handlers.ErrorResponse
// @Router /profile [patch]
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	var req models.UpdateProfileRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), session.UserID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to update profile")
		return
	}

	h.RespondJSON(w, http.StatusOK, profile)
}
