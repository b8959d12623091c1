package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/services"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"github.com/whatifmusic/beatwave/libs/middlewares"
	"go.uber.org/zap"
)

// GateService is the interface that wraps the download gate flow.
//
// Whenever the gate refuses an action, a *services.GateRefusal carrying the user facing warning
// and the unchanged gate is returned.
type GateService interface {
	// Method Open starts a dialog for an existing item.
	Open(ctx context.Context, req *models.OpenGateRequest) (*models.GateView, error)
	// Method Get returns the gate with the ad countdown advanced to the present.
	//
	// Expired or unknown sessions yield an error wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, id string) (*models.GateView, error)
	// Method SelectMethod switches to "ad" or "email", discarding previous progress.
	SelectMethod(ctx context.Context, id, method string) (*models.GateView, error)
	// Method UpdateEmail updates email and consent of an email mode gate.
	UpdateEmail(ctx context.Context, id string, req *models.GateEmailRequest) (*models.GateView, error)
	// Method Download completes an unlocked gate and returns a short lived download link.
	Download(ctx context.Context, id, userAgent, ipAddress string) (*models.GateDownloadResponse, error)
	// Method Close discards the dialog.
	Close(ctx context.Context, id string) error
}

// GateWarningResponse is returned with 409 when the gate refuses an action
type GateWarningResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Gate    models.GateView `json:"gate"`
}

// GateHandler handles download gate HTTP requests
type GateHandler struct {
	handlers.BaseHandler
	service GateService
}

// NewGateHandler creates a new gate handler
func NewGateHandler(svc GateService, logger *zap.Logger) *GateHandler {
	return &GateHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all gate handler routes
func (h *GateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/gate/sessions", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/method", h.SelectMethod)
		r.Put("/{id}/email", h.UpdateEmail)
		r.Post("/{id}/download", h.Download)
		r.Delete("/{id}", h.Close)
	})
}

// Open handles POST /gate/sessions
// @Summary Open a download gate
// @Description Start the download dialog for a catalog item. The gate starts closed with no method.
// @Tags gate
// @Accept json
// @Produce json
// @Param request body models.OpenGateRequest true "Item to download"
// @Success 201 {object} models.GateView
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /gate/sessions [post]
func (h *GateHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenGateRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Open(r.Context(), &req)
	if err != nil {
		h.respondGateError(w, err, "failed to open gate")
		return
	}

	h.RespondJSON(w, http.StatusCreated, view)
}

// Get handles GET /gate/sessions/{id}
// @Summary Get a download gate
// @Description Poll the gate. The ad countdown advances once per elapsed second.
// @Tags gate
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.GateView
// @Failure 404 {object} handlers.ErrorResponse "Session expired"
// @Router /gate/sessions/{id} [get]
func (h *GateHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondGateError(w, err, "failed to get gate")
		return
	}

	h.RespondJSON(w, http.StatusOK, view)
}

// SelectMethod handles PUT /gate/sessions/{id}/method
// @Summary Choose the unlock method
// @Description Choose "ad" (5 second countdown) or "email" (newsletter subscription). Progress of the previous method is discarded.
// @Tags gate
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.SelectMethodRequest true "Method"
// @Success 200 {object} models.GateView
// @Failure 409 {object} GateWarningResponse
// @Router /gate/sessions/{id}/method [put]
func (h *GateHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req models.SelectMethodRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.SelectMethod(r.Context(), chi.URLParam(r, "id"), req.Method)
	if err != nil {
		h.respondGateError(w, err, "failed to select gate method")
		return
	}

	h.RespondJSON(w, http.StatusOK, view)
}

// UpdateEmail handles PUT /gate/sessions/{id}/email
// @Summary Fill in the email form
// @Description Set email and/or newsletter consent. The gate unlocks once the email is valid and consent is given.
// @Tags gate
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.GateEmailRequest true "Email form"
// @Success 200 {object} models.GateView
// @Failure 409 {object} GateWarningResponse
// @Router /gate/sessions/{id}/email [put]
func (h *GateHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req models.GateEmailRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.UpdateEmail(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.respondGateError(w, err, "failed to update gate email")
		return
	}

	h.RespondJSON(w, http.StatusOK, view)
}

// Download handles POST /gate/sessions/{id}/download
// @Summary Download through the gate
// @Description Record the download and return a signed link valid for 60 seconds. Email mode subscribes the address first.
// @Tags gate
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.GateDownloadResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 409 {object} GateWarningResponse "Gate is not unlocked"
// @Failure 500 {object} handlers.ErrorResponse
// @Router /gate/sessions/{id}/download [post]
func (h *GateHandler) Download(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Download(r.Context(), chi.URLParam(r, "id"), r.UserAgent(), middlewares.ClientIP(r))
	if err != nil {
		h.respondGateError(w, err, "failed to download through gate")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}

// Close handles DELETE /gate/sessions/{id}
// @Summary Close a download gate
// @Tags gate
// @Param id path string true "Session ID"
// @Success 204
// @Router /gate/sessions/{id} [delete]
func (h *GateHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.RespondServiceError(w, err, "failed to close gate")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondGateError answers gate refusals with 409 and the current gate, everything else by category
func (h *GateHandler) respondGateError(w http.ResponseWriter, err error, logMsg string) {
	var refusal *services.GateRefusal
	if errors.As(err, &refusal) {
		h.RespondJSON(w, http.StatusConflict, GateWarningResponse{
			Error:   refusal.Error(),
			Code:    refusal.Warning.Code,
			Title:   refusal.Warning.Title,
			Message: refusal.Warning.Message,
			Gate:    refusal.View,
		})
		return
	}

	h.RespondServiceError(w, err, logMsg)
}
