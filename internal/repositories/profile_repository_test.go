package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/middleware"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
)

// setupProfileTestRepository creates a profile repository with a mock database
func setupProfileTestRepository(t *testing.T) (*profileRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return NewProfileRepository(db), mock, func() { db.Close() }
}

func TestProfileRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupProfileTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`FROM profiles\s+WHERE id = \?`).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "avatar_url", "role", "created_at"}).
			AddRow("u1", "Ada", nil, "editor", time.Now()))

	profile, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, roles.RoleEditor, profile.Role)

	mock.ExpectQuery(`FROM profiles`).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_RoleByUserID(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedRole  roles.Role
		expectedError error
		expectAnyErr  bool
	}{
		{
			name: "admin",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT role FROM profiles WHERE id = \?`).WithArgs("u1").
					WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))
			},
			expectedRole: roles.RoleAdmin,
		},
		{
			name: "missing profile",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT role`).WithArgs("u1").WillReturnError(sql.ErrNoRows)
			},
			expectedError: middleware.ErrProfileNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT role`).WithArgs("u1").WillReturnError(errors.New("database error"))
			},
			expectAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProfileTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			role, err := repo.RoleByUserID(context.Background(), "u1")

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.expectAnyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedRole, role)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileRepository_UpdateRole(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "updated",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO profiles \(id, role\)\s+SELECT id, \? FROM users WHERE id = \?\s+ON DUPLICATE KEY UPDATE role = \?`).
					WithArgs("editor", "u2", "editor").
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
		},
		{
			name: "user without profile gets one",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO profiles`).WithArgs("editor", "u2", "editor").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "same role already set",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO profiles`).WithArgs("editor", "u2", "editor").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM users`).WithArgs("u2").WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
			},
		},
		{
			name: "unknown target",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO profiles`).WithArgs("editor", "u2", "editor").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM users`).WithArgs("u2").WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
			},
			expectedError: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProfileTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.UpdateRole(context.Background(), "u2", roles.RoleEditor)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileRepository_Update(t *testing.T) {
	repo, mock, cleanup := setupProfileTestRepository(t)
	defer cleanup()

	name := "Ada L."
	empty := ""
	mock.ExpectExec(`UPDATE profiles\s+SET display_name = \?, avatar_url = \?\s+WHERE id = \?`).
		WithArgs("Ada L.", nil, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", &models.UpdateProfileRequest{DisplayName: &name, AvatarURL: &empty})
	assert.NoError(t, err)

	err = repo.Update(context.Background(), "u1", &models.UpdateProfileRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_Delete(t *testing.T) {
	repo, mock, cleanup := setupProfileTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM profiles WHERE id = \?`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
