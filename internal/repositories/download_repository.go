package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// downloadRepository implements DownloadRepository
type downloadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDownloadRepository creates a new download repository
func NewDownloadRepository(db *sql.DB, logger *zap.Logger) *downloadRepository {
	return &downloadRepository{
		db:     db,
		logger: logger,
	}
}

// Record increments the item's download counter and appends the download record in one transaction.
// It returns the counter value after the increment.
// download.ID must already be set.
func (r *downloadRepository) Record(ctx context.Context, download *models.Download) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	table := download.ItemType.Table()

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET downloads = downloads + 1 WHERE id = ?`, table),
		download.ItemID,
	)
	if err != nil {
		r.logger.Error("failed to increment download counter", zap.Error(err), zap.String("item_id", download.ItemID))
		return 0, fmt.Errorf("failed to increment download counter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, download.ItemType, download.ItemID)
	}

	query := `
		INSERT INTO downloads (id, item_id, item_type, email, user_agent, ip_address)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		download.ID,
		download.ItemID,
		download.ItemType,
		download.Email,
		download.UserAgent,
		download.IPAddress,
	); err != nil {
		r.logger.Error("failed to insert download record", zap.Error(err), zap.String("item_id", download.ItemID))
		return 0, fmt.Errorf("failed to insert download record: %w", err)
	}

	var downloads int64
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT downloads FROM %s WHERE id = ?`, table),
		download.ItemID,
	).Scan(&downloads); err != nil {
		return 0, fmt.Errorf("failed to read download counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit download: %w", err)
	}

	return downloads, nil
}
