package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"go.uber.org/zap"
)

// AdminUserRepository is the interface that wraps identity record methods used by admin functions
type AdminUserRepository interface {
	// Method ListWithRoles retrieves every user joined with its profile role.
	//
	// Users without a profile are reported with the "user" role.
	ListWithRoles(ctx context.Context) ([]models.UserWithRole, error)
	// Method Delete deletes the identity record.
	//
	// If the user does not exist, an error wrapping apperrors.ErrNotFound is returned.
	Delete(ctx context.Context, id string) error
}

// AdminProfileRepository is the interface that wraps profile methods used by admin functions
type AdminProfileRepository interface {
	// Method UpdateRole sets the role of a profile.
	//
	// If the profile does not exist, an error wrapping apperrors.ErrNotFound is returned.
	UpdateRole(ctx context.Context, id string, role roles.Role) error
	// Method Delete deletes a profile. A missing profile is not an error.
	Delete(ctx context.Context, id string) error
}

type adminService struct {
	userRepo    AdminUserRepository
	profileRepo AdminProfileRepository
	logger      *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(userRepo AdminUserRepository, profileRepo AdminProfileRepository, logger *zap.Logger) *adminService {
	return &adminService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// ListUsersWithRoles retrieves every user together with its role
func (s *adminService) ListUsersWithRoles(ctx context.Context) ([]models.UserWithRole, error) {
	users, err := s.userRepo.ListWithRoles(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ManageUserRole assigns a new role to the target user.
// The role is validated before anything is written.
func (s *adminService) ManageUserRole(ctx context.Context, callerID string, req *models.ManageUserRoleRequest) error {
	targetID := strings.TrimSpace(req.TargetUserID)
	if targetID == "" {
		return fmt.Errorf("%w: targetUserId is required", apperrors.ErrInvalidInput)
	}

	role, ok := roles.Parse(req.NewRole)
	if !ok {
		return fmt.Errorf("%w: newRole must be one of %v", apperrors.ErrInvalidInput, roles.All)
	}

	if err := s.profileRepo.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}

	s.logger.Info("user role changed",
		zap.String("caller_id", callerID),
		zap.String("target_user_id", targetID),
		zap.String("role", string(role)),
	)
	return nil
}

// DeleteUser deletes the profile and the identity record of the target user.
//
// Admins can not delete themselves. The profile is removed first on a best effort basis;
// the identity deletion decides the outcome.
func (s *adminService) DeleteUser(ctx context.Context, callerID string, req *models.DeleteUserRequest) error {
	targetID := strings.TrimSpace(req.TargetUserID)
	if targetID == "" {
		return fmt.Errorf("%w: targetUserId is required", apperrors.ErrInvalidInput)
	}
	if targetID == callerID {
		return fmt.Errorf("%w: you cannot delete your own account", apperrors.ErrForbidden)
	}

	if err := s.profileRepo.Delete(ctx, targetID); err != nil {
		s.logger.Warn("failed to delete profile, continuing with user deletion",
			zap.String("target_user_id", targetID),
			zap.Error(err),
		)
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.String("caller_id", callerID), zap.String("target_user_id", targetID))
	return nil
}
