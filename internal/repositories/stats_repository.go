package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/whatifmusic/beatwave/internal/models"
)

// statsRepository implements StatsRepository
type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new dashboard statistics repository
func NewStatsRepository(db *sql.DB) *statsRepository {
	return &statsRepository{
		db: db,
	}
}

// GetStats counts catalog items, downloads and subscribers
func (r *statsRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM beats),
			(SELECT COUNT(*) FROM remixes),
			(SELECT COUNT(*) FROM cover_art),
			(SELECT COUNT(*) FROM downloads),
			(SELECT COUNT(*) FROM newsletter_subscribers)
	`

	stats := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Beats,
		&stats.Remixes,
		&stats.CoverArt,
		&stats.Downloads,
		&stats.Subscribers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}
