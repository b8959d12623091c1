package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response with a code derived from the status
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, ErrorResponse{Error: message, Code: codeForStatus(status)})
}

// RespondServiceError maps a service error onto its HTTP status.
// Internal errors are logged and their message is hidden from the client.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, logMsg string) {
	status, code := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(logMsg, zap.Error(err))
		h.RespondJSON(w, status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}

	h.Logger.Debug(logMsg, zap.Error(err))
	h.RespondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// DecodeJSON decodes the request body into dst and responds 400 on failure.
// It returns false when the handler should stop.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}
