package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// ProfileUpdater is the interface that wraps profile write access
type ProfileUpdater interface {
	// Method GetByID retrieves a profile by user id.
	//
	// If the profile does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	// Method Update applies the non-nil fields of "req".
	//
	// If the profile does not exist, an error wrapping apperrors.ErrNotFound is returned.
	Update(ctx context.Context, id string, req *models.UpdateProfileRequest) error
}

type profileService struct {
	repo   ProfileUpdater
	logger *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(repo ProfileUpdater, logger *zap.Logger) *profileService {
	return &profileService{
		repo:   repo,
		logger: logger,
	}
}

// GetProfile retrieves the caller's profile
func (s *profileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile updates the caller's display metadata. The role can not be changed here.
func (s *profileService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if req.DisplayName == nil && req.AvatarURL == nil {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}

	if req.DisplayName != nil {
		name, err := normalizeDisplayName(*req.DisplayName)
		if err != nil {
			return nil, err
		}
		req.DisplayName = &name
	}

	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" {
			u, err := url.Parse(avatar)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, fmt.Errorf("%w: avatar_url must be an http(s) URL", apperrors.ErrInvalidInput)
			}
		}
		req.AvatarURL = &avatar
	}

	if err := s.repo.Update(ctx, userID, req); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, userID)
}
