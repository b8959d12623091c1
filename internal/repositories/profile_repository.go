package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
)

// profileRepository implements ProfileRepository and middleware.RoleLookup
type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) *profileRepository {
	return &profileRepository{
		db: db,
	}
}

// GetByID retrieves a profile by user id
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, display_name, avatar_url, role, created_at
		FROM profiles
		WHERE id = ?
		LIMIT 1
	`

	profile := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.Role,
		&profile.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: profile", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// RoleByUserID returns the role stored in the user's profile
func (r *profileRepository) RoleByUserID(ctx context.Context, userID string) (roles.Role, error) {
	var role roles.Role
	err := r.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = ?`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", middleware.ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// UpdateRole sets the role of a user. A user left without a profile row gets one.
//
// If the user does not exist, an error wrapping apperrors.ErrNotFound is returned.
func (r *profileRepository) UpdateRole(ctx context.Context, id string, role roles.Role) error {
	query := `
		INSERT INTO profiles (id, role)
		SELECT id, ? FROM users WHERE id = ?
		ON DUPLICATE KEY UPDATE role = ?
	`

	result, err := r.db.ExecContext(ctx, query, role, id, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Zero rows is either an unchanged role or an unknown user
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT * FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: user", apperrors.ErrNotFound)
	}

	return nil
}

// Update updates display metadata (partial update)
func (r *profileRepository) Update(ctx context.Context, id string, req *models.UpdateProfileRequest) error {
	var setParts []string
	var args []any

	if req.DisplayName != nil {
		setParts = append(setParts, "display_name = ?")
		args = append(args, nullIfEmpty(*req.DisplayName))
	}
	if req.AvatarURL != nil {
		setParts = append(setParts, "avatar_url = ?")
		args = append(args, nullIfEmpty(*req.AvatarURL))
	}

	if len(setParts) == 0 {
		return fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		UPDATE profiles
		SET %s
		WHERE id = ?
	`, strings.Join(setParts, ", "))

	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return r.ensureUpdated(ctx, result, id)
}

// Delete deletes a profile. A missing profile is not an error.
func (r *profileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	return nil
}

// ensureUpdated tells an unchanged row apart from a missing one
func (r *profileRepository) ensureUpdated(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT * FROM profiles WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check profile existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: profile", apperrors.ErrNotFound)
	}

	return nil
}
