package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"go.uber.org/zap"
)

// SubscribeRequest is the body of a newsletter subscription
type SubscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeResponse reports whether the address was new
type SubscribeResponse struct {
	Success    bool `json:"success"`
	Subscribed bool `json:"subscribed"`
}

// NewsletterHandler handles newsletter sign-ups outside the download gate
type NewsletterHandler struct {
	handlers.BaseHandler
	service DownloadService
}

// NewNewsletterHandler creates a new newsletter handler
func NewNewsletterHandler(svc DownloadService, logger *zap.Logger) *NewsletterHandler {
	return &NewsletterHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all newsletter handler routes
func (h *NewsletterHandler) RegisterRoutes(r chi.Router) {
	r.Post("/newsletter/subscribe", h.Subscribe)
}

// Subscribe handles POST /newsletter/subscribe
// @Summary Subscribe to the newsletter
// @Description Subscribing an address twice succeeds; "subscribed" is false then.
// @Tags newsletter
// @Accept json
// @Produce json
// @Param request body SubscribeRequest true "Email"
// @Success 200 {object} SubscribeResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Router /newsletter/subscribe [post]
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.Subscribe(r.Context(), req.Email)
	if err != nil {
		h.RespondServiceError(w, err, "failed to subscribe")
		return
	}

	h.RespondJSON(w, http.StatusOK, SubscribeResponse{Success: true, Subscribed: created})
}
