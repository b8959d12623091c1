package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/services"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/handlers"
	"github.com/whatifmusic/beatwave/libs/middlewares"
	"go.uber.org/zap"
)

// AdminService is the interface that wraps the admin-only user functions.
type AdminService interface {
	// Method ListUsersWithRoles retrieves every user together with its role.
	ListUsersWithRoles(ctx context.Context) ([]models.UserWithRole, error)
	// Method ManageUserRole assigns a new role to the target user.
	//
	// An unknown role yields apperrors.ErrInvalidInput, an unknown user apperrors.ErrNotFound.
	ManageUserRole(ctx context.Context, callerID string, req *models.ManageUserRoleRequest) error
	// Method DeleteUser deletes the target user.
	//
	// Deleting yourself yields apperrors.ErrForbidden, an unknown user apperrors.ErrNotFound.
	DeleteUser(ctx context.Context, callerID string, req *models.DeleteUserRequest) error
}

// StorageFilesService is the interface that wraps the storage functions.
type StorageFilesService interface {
	// Method ListFiles returns the objects of every bucket.
	ListFiles(ctx context.Context) ([]models.StorageObject, error)
	// Method DeleteFile deletes one object.
	//
	// An unknown bucket or a path escaping the bucket yields apperrors.ErrInvalidInput.
	DeleteFile(ctx context.Context, req *models.DeleteStorageFileRequest) error
}

// DownloadService is the interface that wraps download bookkeeping.
type DownloadService interface {
	// Method Record counts a download and appends the download record in one transaction.
	Record(ctx context.Context, req *models.RecordDownloadRequest, ipAddress string) (*models.RecordDownloadResponse, error)
	// Method Subscribe adds an email to the newsletter. It returns true for a new address.
	Subscribe(ctx context.Context, email string) (bool, error)
}

// SeedService is the interface that wraps sample data seeding.
type SeedService interface {
	// Method Seed inserts the sample catalog, skipping items that exist.
	Seed(ctx context.Context) (*services.SeedResult, error)
}

// FunctionGuards holds the role guards of the function endpoints
type FunctionGuards struct {
	Admin func(http.Handler) http.Handler
	Staff func(http.Handler) http.Handler
}

// FunctionsHandler serves the role-gated functions under /functions/v1
type FunctionsHandler struct {
	handlers.BaseHandler
	admin     AdminService
	storage   StorageFilesService
	downloads DownloadService
	seed      SeedService
	guards    FunctionGuards
}

// NewFunctionsHandler creates a new functions handler
func NewFunctionsHandler(
	admin AdminService,
	storage StorageFilesService,
	downloads DownloadService,
	seed SeedService,
	guards FunctionGuards,
	logger *zap.Logger,
) *FunctionsHandler {
	return &FunctionsHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		admin:       admin,
		storage:     storage,
		downloads:   downloads,
		seed:        seed,
		guards:      guards,
	}
}

// RegisterRoutes registers every function. The router must be scoped to /functions/v1.
func (h *FunctionsHandler) RegisterRoutes(r chi.Router) {
	r.With(h.guards.Admin).Post("/list-users-with-roles", h.ListUsersWithRoles)
	r.With(h.guards.Admin).Post("/manage-user-roles", h.ManageUserRoles)
	r.With(h.guards.Admin).Post("/delete-user", h.DeleteUser)
	r.With(h.guards.Admin).Post("/setup-data", h.SetupData)

	r.With(h.guards.Staff).Post("/list-storage-files", h.ListStorageFiles)
	r.With(h.guards.Staff).Post("/delete-storage-file", h.DeleteStorageFile)

	r.Post("/record-download", h.RecordDownload)
}

type successResponse struct {
	Success bool `json:"success"`
}

// ListUsersWithRoles handles POST /functions/v1/list-users-with-roles
// @Summary List users with roles
// @Tags functions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]models.UserWithRole
// @Failure 401 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Router /functions/v1/list-users-with-roles [post]
func (h *FunctionsHandler) ListUsersWithRoles(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsersWithRoles(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to list users")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string][]models.UserWithRole{"users": nonNil(users)})
}

// ManageUserRoles handles POST /functions/v1/manage-user-roles
// @Summary Change a user's role
// @Tags functions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ManageUserRoleRequest true "Target and new role (user, editor or admin)"
// @Success 200 {object} successResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /functions/v1/manage-user-roles [post]
func (h *FunctionsHandler) ManageUserRoles(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	var req models.ManageUserRoleRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.admin.ManageUserRole(r.Context(), session.UserID, &req); err != nil {
		h.RespondServiceError(w, err, "failed to manage user role")
		return
	}

	h.RespondJSON(w, http.StatusOK, successResponse{Success: true})
}

// DeleteUser handles POST /functions/v1/delete-user
// @Summary Delete a user
// @Description Delete the profile and the identity of a user. Admins can not delete themselves.
// @Tags functions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DeleteUserRequest true "Target user"
// @Success 200 {object} successResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /functions/v1/delete-user [post]
func (h *FunctionsHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	var req models.DeleteUserRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.admin.DeleteUser(r.Context(), session.UserID, &req); err != nil {
		h.RespondServiceError(w, err, "failed to delete user")
		return
	}

	h.RespondJSON(w, http.StatusOK, successResponse{Success: true})
}

// SetupData handles POST /functions/v1/setup-data
// @Summary Seed sample data
// @Description Insert the sample catalog. Safe to run repeatedly.
// @Tags functions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.SeedResult
// @Failure 403 {object} handlers.ErrorResponse
// @Router /functions/v1/setup-data [post]
func (h *FunctionsHandler) SetupData(w http.ResponseWriter, r *http.Request) {
	result, err := h.seed.Seed(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to seed data")
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// ListStorageFiles handles POST /functions/v1/list-storage-files
// @Summary List storage files
// @Tags functions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]models.StorageObject
// @Failure 403 {object} handlers.ErrorResponse
// @Router /functions/v1/list-storage-files [post]
func (h *FunctionsHandler) ListStorageFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.storage.ListFiles(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to list storage files")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string][]models.StorageObject{"files": nonNil(files)})
}

// DeleteStorageFile handles POST /functions/v1/delete-storage-file
// @Summary Delete a storage file
// @Tags functions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DeleteStorageFileRequest true "Bucket and path"
// @Success 200 {object} successResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 403 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /functions/v1/delete-storage-file [post]
func (h *FunctionsHandler) DeleteStorageFile(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteStorageFileRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.storage.DeleteFile(r.Context(), &req); err != nil {
		h.RespondServiceError(w, err, "failed to delete storage file")
		return
	}

	h.RespondJSON(w, http.StatusOK, successResponse{Success: true})
}

// RecordDownload handles POST /functions/v1/record-download
// @Summary Record a download
// @Description Increment the item's counter and store the download record. The IP is taken from the request.
// @Tags functions
// @Accept json
// @Produce json
// @Param request body models.RecordDownloadRequest true "Downloaded item"
// @Success 200 {object} models.RecordDownloadResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /functions/v1/record-download [post]
func (h *FunctionsHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	var req models.RecordDownloadRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.UserAgent == nil {
		ua := r.UserAgent()
		req.UserAgent = &ua
	}

	resp, err := h.downloads.Record(r.Context(), &req, middlewares.ClientIP(r))
	if err != nil {
		h.RespondServiceError(w, err, "failed to record download")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
