package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// subscriberRepository implements SubscriberRepository
type subscriberRepository struct {
	db *sql.DB
}

// NewSubscriberRepository creates a new newsletter subscriber repository
func NewSubscriberRepository(db *sql.DB) *subscriberRepository {
	return &subscriberRepository{
		db: db,
	}
}

// Subscribe inserts email into the subscriber list. An existing email is not an error.
// It returns true when the email was not subscribed before.
func (r *subscriberRepository) Subscribe(ctx context.Context, email string) (bool, error) {
	query := `INSERT IGNORE INTO newsletter_subscribers (email) VALUES (?)`

	result, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to subscribe email: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// GetAllEmails retrieves every subscribed email
func (r *subscriberRepository) GetAllEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM newsletter_subscribers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return emails, nil
}
