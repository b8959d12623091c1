package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// ContentRepository is the interface that wraps write methods of the content tables
type ContentRepository interface {
	// Method GetAll retrieves every item of a content type, newest first.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetAll(ctx context.Context, contentType models.ContentType) ([]models.ContentItem, error)
	// Method GetByID retrieves a single item.
	//
	// If the item does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByID(ctx context.Context, contentType models.ContentType, id string) (*models.ContentItem, error)
	// Method Create inserts a new item into the table of item.Type.
	//
	// "item" parameter must have its ID set.
	Create(ctx context.Context, item *models.ContentItem) error
	// Method Update applies the non-nil fields of "req" to the item.
	//
	// If the item does not exist, an error wrapping apperrors.ErrNotFound is returned.
	Update(ctx context.Context, contentType models.ContentType, id string, req *models.ContentRequest) error
	// Method Delete deletes the item.
	//
	// If the item does not exist, an error wrapping apperrors.ErrNotFound is returned.
	Delete(ctx context.Context, contentType models.ContentType, id string) error
}

// ObjectRemover deletes stored objects
type ObjectRemover interface {
	Delete(bucket, objectPath string) error
}

type contentService struct {
	repo    ContentRepository
	objects ObjectRemover
	logger  *zap.Logger
}

// NewContentService creates a new admin content service
func NewContentService(repo ContentRepository, objects ObjectRemover, logger *zap.Logger) *contentService {
	return &contentService{
		repo:    repo,
		objects: objects,
		logger:  logger,
	}
}

// List retrieves every item of a content type for the dashboard tables
func (s *contentService) List(ctx context.Context, typeParam string) ([]models.ContentItem, error) {
	contentType, err := parseContentType(typeParam)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetAll(ctx, contentType)
	if err != nil {
		s.logger.Error("failed to list content", zap.String("type", string(contentType)), zap.Error(err))
		return nil, fmt.Errorf("failed to list %s items: %w", contentType, err)
	}
	return items, nil
}

// Create validates the request and inserts a new item
func (s *contentService) Create(ctx context.Context, typeParam string, req *models.ContentRequest) (*models.ContentItem, error) {
	contentType, err := parseContentType(typeParam)
	if err != nil {
		return nil, err
	}

	if req.Title == nil || req.Creator == nil || req.FilePath == nil {
		return nil, fmt.Errorf("%w: title, creator and file_path are required", apperrors.ErrInvalidInput)
	}
	if err := validateContentRequest(req); err != nil {
		return nil, err
	}

	item := &models.ContentItem{
		ID:         uuid.NewString(),
		Type:       contentType,
		Title:      *req.Title,
		Creator:    *req.Creator,
		FilePath:   *req.FilePath,
		ImageURL:   req.ImageURL,
		Tags:       models.Tags{},
		BPM:        req.BPM,
		MusicalKey: req.MusicalKey,
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("content item created", zap.String("type", string(contentType)), zap.String("id", item.ID))
	return s.repo.GetByID(ctx, contentType, item.ID)
}

// Update validates the provided fields and applies them to the item
func (s *contentService) Update(ctx context.Context, typeParam, id string, req *models.ContentRequest) (*models.ContentItem, error) {
	contentType, err := parseContentType(typeParam)
	if err != nil {
		return nil, err
	}
	if err := validateContentRequest(req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, contentType, id, req); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, contentType, id)
}

// Delete deletes the item and then its media file.
// A media file that cannot be removed is logged and left behind.
func (s *contentService) Delete(ctx context.Context, typeParam, id string) error {
	contentType, err := parseContentType(typeParam)
	if err != nil {
		return err
	}

	item, err := s.repo.GetByID(ctx, contentType, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, contentType, id); err != nil {
		return err
	}

	if item.FilePath != "" {
		if err := s.objects.Delete(contentType.Bucket(), item.FilePath); err != nil {
			s.logger.Warn("failed to delete media file",
				zap.String("bucket", contentType.Bucket()),
				zap.String("path", item.FilePath),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("content item deleted", zap.String("type", string(contentType)), zap.String("id", id))
	return nil
}

// validateContentRequest trims the provided fields in place and checks them
func validateContentRequest(req *models.ContentRequest) error {
	required := []struct {
		name  string
		value *string
	}{
		{"title", req.Title},
		{"creator", req.Creator},
		{"file_path", req.FilePath},
	}
	for _, field := range required {
		if field.value == nil {
			continue
		}
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			return fmt.Errorf("%w: %s cannot be empty", apperrors.ErrInvalidInput, field.name)
		}
	}

	if req.FilePath != nil {
		if strings.HasPrefix(*req.FilePath, "/") || strings.Contains(*req.FilePath, "..") {
			return fmt.Errorf("%w: file_path must be relative to the bucket", apperrors.ErrInvalidInput)
		}
	}

	if req.BPM != nil && *req.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be a positive number", apperrors.ErrInvalidInput)
	}

	if req.MusicalKey != nil {
		key := strings.TrimSpace(*req.MusicalKey)
		req.MusicalKey = &key
	}

	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		if tags == nil {
			tags = []string{}
		}
		req.Tags = &tags
	}

	return nil
}
