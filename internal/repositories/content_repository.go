package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

const contentColumns = `id, title, creator, file_path, image_url, tags, bpm, musical_key, downloads, created_at, updated_at`

// contentRepository implements ContentRepository over the beats, remixes and cover_art tables
type contentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *sql.DB, logger *zap.Logger) *contentRepository {
	return &contentRepository{
		db:     db,
		logger: logger,
	}
}

// GetBeats retrieves beats matching filter, newest first
func (r *contentRepository) GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error) {
	var whereClauses []string
	var args []any

	if filter.BPM != nil {
		whereClauses = append(whereClauses, "bpm = ?")
		args = append(args, *filter.BPM)
	}
	if filter.Key != "" {
		whereClauses = append(whereClauses, "LOWER(musical_key) LIKE ?")
		args = append(args, likePattern(filter.Key))
	}
	if len(filter.Tags) > 0 {
		tags, err := json.Marshal(filter.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tag filter: %w", err)
		}
		whereClauses = append(whereClauses, "JSON_OVERLAPS(tags, CAST(? AS JSON))")
		args = append(args, string(tags))
	}
	if filter.Title != "" {
		whereClauses = append(whereClauses, "LOWER(title) LIKE ?")
		args = append(args, likePattern(filter.Title))
	}
	if filter.Creator != "" {
		whereClauses = append(whereClauses, "LOWER(creator) LIKE ?")
		args = append(args, likePattern(filter.Creator))
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM beats
		%s
		ORDER BY created_at DESC
	`, contentColumns, whereClause)

	return r.query(ctx, models.ContentTypeBeat, query, args...)
}

// GetAll retrieves the full collection of contentType, newest first
func (r *contentRepository) GetAll(ctx context.Context, contentType models.ContentType) ([]models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC
	`, contentColumns, contentType.Table())

	return r.query(ctx, contentType, query)
}

// GetByID retrieves a single item
func (r *contentRepository) GetByID(ctx context.Context, contentType models.ContentType, id string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ?
		LIMIT 1
	`, contentColumns, contentType.Table())

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id), contentType)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, contentType, id)
	}
	if err != nil {
		r.logger.Error("failed to get content item", zap.Error(err), zap.String("type", string(contentType)), zap.String("id", id))
		return nil, fmt.Errorf("failed to get %s by id: %w", contentType, err)
	}

	return item, nil
}

// GetCreatedSince retrieves items of every type created at or after since, newest first
func (r *contentRepository) GetCreatedSince(ctx context.Context, since time.Time) ([]models.ContentItem, error) {
	var parts []string
	var args []any
	for _, ct := range models.ContentTypes {
		parts = append(parts, fmt.Sprintf(`SELECT '%s' AS item_type, %s FROM %s WHERE created_at >= ?`, ct, contentColumns, ct.Table()))
		args = append(args, since)
	}
	query := strings.Join(parts, " UNION ALL ") + " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query new content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		dest := append([]any{&item.Type}, itemFields(&item)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// Create inserts a new item. item.ID must already be set.
func (r *contentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, creator, file_path, image_url, tags, bpm, musical_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.Type.Table())

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.Creator,
		item.FilePath,
		item.ImageURL,
		item.Tags,
		item.BPM,
		item.MusicalKey,
	)
	if err != nil {
		r.logger.Error("failed to create content item", zap.Error(err), zap.String("type", string(item.Type)))
		return fmt.Errorf("failed to create %s: %w", item.Type, err)
	}

	return nil
}

// InsertIgnore inserts items, silently skipping ids that already exist.
// It returns the number of rows actually inserted.
func (r *contentRepository) InsertIgnore(ctx context.Context, items []models.ContentItem) (int, error) {
	inserted := 0
	for i := range items {
		query := fmt.Sprintf(`
			INSERT IGNORE INTO %s (id, title, creator, file_path, image_url, tags, bpm, musical_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, items[i].Type.Table())

		result, err := r.db.ExecContext(ctx, query,
			items[i].ID,
			items[i].Title,
			items[i].Creator,
			items[i].FilePath,
			items[i].ImageURL,
			items[i].Tags,
			items[i].BPM,
			items[i].MusicalKey,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed %s %s: %w", items[i].Type, items[i].ID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(rowsAffected)
	}

	return inserted, nil
}

// Update updates item fields (partial update)
func (r *contentRepository) Update(ctx context.Context, contentType models.ContentType, id string, req *models.ContentRequest) error {
	var setParts []string
	var args []any

	if req.Title != nil {
		setParts = append(setParts, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Creator != nil {
		setParts = append(setParts, "creator = ?")
		args = append(args, *req.Creator)
	}
	if req.FilePath != nil {
		setParts = append(setParts, "file_path = ?")
		args = append(args, *req.FilePath)
	}
	if req.ImageURL != nil {
		setParts = append(setParts, "image_url = ?")
		args = append(args, nullIfEmpty(*req.ImageURL))
	}
	if req.Tags != nil {
		setParts = append(setParts, "tags = ?")
		args = append(args, models.Tags(*req.Tags))
	}
	if req.BPM != nil {
		setParts = append(setParts, "bpm = ?")
		args = append(args, *req.BPM)
	}
	if req.MusicalKey != nil {
		setParts = append(setParts, "musical_key = ?")
		args = append(args, nullIfEmpty(*req.MusicalKey))
	}

	if len(setParts) == 0 {
		return fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = ?
	`, contentType.Table(), strings.Join(setParts, ", "))

	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", contentType, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// MySQL reports 0 affected rows when the new values equal the old ones
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, contentType, id); err != nil {
			return err
		}
	}

	return nil
}

// Delete deletes an item by ID
func (r *contentRepository) Delete(ctx context.Context, contentType models.ContentType, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, contentType.Table())

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", contentType, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, contentType, id)
	}

	return nil
}

func (r *contentRepository) query(ctx context.Context, contentType models.ContentType, query string, args ...any) ([]models.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query content", zap.Error(err), zap.String("type", string(contentType)))
		return nil, fmt.Errorf("failed to query %s: %w", contentType.Table(), err)
	}
	defer rows.Close()

	items := []models.ContentItem{}
	for rows.Next() {
		item, err := scanItem(rows, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", contentType, err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, contentType models.ContentType) (*models.ContentItem, error) {
	item := &models.ContentItem{Type: contentType}
	if err := row.Scan(itemFields(item)...); err != nil {
		return nil, err
	}
	return item, nil
}

// itemFields returns scan destinations in contentColumns order
func itemFields(item *models.ContentItem) []any {
	return []any{
		&item.ID,
		&item.Title,
		&item.Creator,
		&item.FilePath,
		&item.ImageURL,
		&item.Tags,
		&item.BPM,
		&item.MusicalKey,
		&item.Downloads,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped
func likePattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + escaped + "%"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
