package services

import (
	"context"
	"fmt"

	"github.com/whatifmusic/beatwave/internal/models"
	"go.uber.org/zap"
)

// SeedRepository inserts catalog items that are not present yet
type SeedRepository interface {
	// Method InsertIgnore inserts items, skipping ids that already exist.
	//
	// It returns the number of rows actually inserted.
	InsertIgnore(ctx context.Context, items []models.ContentItem) (int, error)
}

// SeedResult reports what setup-data inserted
type SeedResult struct {
	Success  bool `json:"success"`
	Inserted int  `json:"inserted"`
	Total    int  `json:"total"`
}

type seedService struct {
	repo   SeedRepository
	logger *zap.Logger
}

// NewSeedService creates a new seed service
func NewSeedService(repo SeedRepository, logger *zap.Logger) *seedService {
	return &seedService{
		repo:   repo,
		logger: logger,
	}
}

// Seed inserts the sample catalog. Running it again inserts nothing.
func (s *seedService) Seed(ctx context.Context) (*SeedResult, error) {
	items := sampleItems()

	inserted, err := s.repo.InsertIgnore(ctx, items)
	if err != nil {
		s.logger.Error("failed to seed sample data", zap.Error(err))
		return nil, fmt.Errorf("failed to seed sample data: %w", err)
	}

	s.logger.Info("sample data seeded", zap.Int("inserted", inserted), zap.Int("total", len(items)))
	return &SeedResult{Success: true, Inserted: inserted, Total: len(items)}, nil
}

// sampleItems returns the sample catalog. Ids are fixed so seeding stays idempotent.
func sampleItems() []models.ContentItem {
	bpm := func(v int) *int { return &v }
	str := func(v string) *string { return &v }

	return []models.ContentItem{
		{
			ID:         "7b0c3f0e-1d2a-4c55-9a0e-000000000001",
			Type:       models.ContentTypeBeat,
			Title:      "Midnight Drive",
			Creator:    "Nova Keys",
			FilePath:   "samples/midnight-drive.mp3",
			Tags:       models.Tags{"lofi", "chill", "night"},
			BPM:        bpm(85),
			MusicalKey: str("A minor"),
		},
		{
			ID:         "7b0c3f0e-1d2a-4c55-9a0e-000000000002",
			Type:       models.ContentTypeBeat,
			Title:      "Concrete Bloom",
			Creator:    "Lowfreq",
			FilePath:   "samples/concrete-bloom.mp3",
			Tags:       models.Tags{"trap", "dark"},
			BPM:        bpm(140),
			MusicalKey: str("F# minor"),
		},
		{
			ID:         "7b0c3f0e-1d2a-4c55-9a0e-000000000003",
			Type:       models.ContentTypeBeat,
			Title:      "Sunday Static",
			Creator:    "Nova Keys",
			FilePath:   "samples/sunday-static.mp3",
			Tags:       models.Tags{"boom bap", "vinyl"},
			BPM:        bpm(92),
			MusicalKey: str("C major"),
		},
		{
			ID:       "7b0c3f0e-1d2a-4c55-9a0e-000000000011",
			Type:     models.ContentTypeRemix,
			Title:    "What If (Late Night Flip)",
			Creator:  "Lowfreq",
			FilePath: "samples/what-if-late-night-flip.mp3",
			Tags:     models.Tags{"remix", "house"},
			BPM:      bpm(124),
		},
		{
			ID:       "7b0c3f0e-1d2a-4c55-9a0e-000000000012",
			Type:     models.ContentTypeRemix,
			Title:    "Paper Planes (Tape Edit)",
			Creator:  "Cass Ette",
			FilePath: "samples/paper-planes-tape-edit.mp3",
			Tags:     models.Tags{"remix", "lofi"},
			BPM:      bpm(78),
		},
		{
			ID:       "7b0c3f0e-1d2a-4c55-9a0e-000000000021",
			Type:     models.ContentTypeCoverArt,
			Title:    "Neon Skyline",
			Creator:  "Ivy Render",
			FilePath: "samples/neon-skyline.png",
			ImageURL: str("/api/v1/images/samples/neon-skyline.png"),
			Tags:     models.Tags{"synthwave", "city"},
		},
		{
			ID:       "7b0c3f0e-1d2a-4c55-9a0e-000000000022",
			Type:     models.ContentTypeCoverArt,
			Title:    "Paper Moon",
			Creator:  "Ivy Render",
			FilePath: "samples/paper-moon.jpg",
			Tags:     models.Tags{"minimal", "pastel"},
		},
	}
}
