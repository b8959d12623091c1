package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// CatalogRepository is the interface that wraps read methods of the content tables
type CatalogRepository interface {
	// Method GetBeats retrieves beats matching the filter, newest first.
	//
	// "filter" parameter narrows the result. Zero valued fields impose no constraint.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error)
	// Method GetAll retrieves every item of a content type, newest first.
	//
	// "contentType" parameter selects the table (beats, remixes or cover_art).
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetAll(ctx context.Context, contentType models.ContentType) ([]models.ContentItem, error)
	// Method GetByID retrieves a single item.
	//
	// "contentType" parameter selects the table, "id" parameter is the item id.
	//
	// If the item does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByID(ctx context.Context, contentType models.ContentType, id string) (*models.ContentItem, error)
}

type catalogService struct {
	repo   CatalogRepository
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo CatalogRepository, logger *zap.Logger) *catalogService {
	return &catalogService{
		repo:   repo,
		logger: logger,
	}
}

// GetBeats retrieves beats filtered by tempo, key, tags, title and producer
func (s *catalogService) GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error) {
	if filter.BPM != nil && *filter.BPM <= 0 {
		return nil, fmt.Errorf("%w: bpm must be a positive number", apperrors.ErrInvalidInput)
	}

	filter.Key = strings.TrimSpace(filter.Key)
	filter.Title = strings.TrimSpace(filter.Title)
	filter.Creator = strings.TrimSpace(filter.Creator)
	filter.Tags = normalizeTags(filter.Tags)

	beats, err := s.repo.GetBeats(ctx, filter)
	if err != nil {
		s.logger.Error("failed to get beats", zap.Error(err))
		return nil, fmt.Errorf("failed to get beats: %w", err)
	}

	return beats, nil
}

// GetRemixes retrieves every remix, newest first
func (s *catalogService) GetRemixes(ctx context.Context) ([]models.ContentItem, error) {
	return s.getAll(ctx, models.ContentTypeRemix)
}

// GetCoverArt retrieves every cover art entry, newest first
func (s *catalogService) GetCoverArt(ctx context.Context) ([]models.ContentItem, error) {
	return s.getAll(ctx, models.ContentTypeCoverArt)
}

// GetItem retrieves a single item for the detail page.
//
// typeParam accepts the singular type or the plural collection name ("beats", "cover-art").
func (s *catalogService) GetItem(ctx context.Context, typeParam, id string) (*models.ContentItem, error) {
	contentType, err := parseContentType(typeParam)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrInvalidInput)
	}

	return s.repo.GetByID(ctx, contentType, id)
}

func (s *catalogService) getAll(ctx context.Context, contentType models.ContentType) ([]models.ContentItem, error) {
	items, err := s.repo.GetAll(ctx, contentType)
	if err != nil {
		s.logger.Error("failed to get content", zap.String("type", string(contentType)), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s items: %w", contentType, err)
	}

	return items, nil
}

// parseContentType converts a path or body parameter to a content type
func parseContentType(typeParam string) (models.ContentType, error) {
	contentType, ok := models.ParseContentType(strings.ToLower(strings.TrimSpace(typeParam)))
	if !ok {
		return "", fmt.Errorf("%w: unknown content type %q", apperrors.ErrInvalidInput, typeParam)
	}
	return contentType, nil
}

// normalizeTags trims tags and drops blanks and duplicates, keeping the first spelling
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, tag)
	}
	return result
}
