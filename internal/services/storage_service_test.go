package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/service"
	"go.uber.org/zap"
)

func newTestStorageService(objects *mockObjectStorage) *storageService {
	return NewStorageService(objects, service.NewObjectSigner("storage-secret"), "https://beats.example.com", time.Minute, zap.NewNop())
}

func TestStorageService_DeleteFile(t *testing.T) {
	tests := []struct {
		name          string
		req           *models.DeleteStorageFileRequest
		expectedKey   string
		expectedError error
	}{
		{
			name:        "success",
			req:         &models.DeleteStorageFileRequest{BucketName: "beats", FilePath: "2024/03/a.mp3"},
			expectedKey: "beats/2024/03/a.mp3",
		},
		{
			name:          "unknown bucket",
			req:           &models.DeleteStorageFileRequest{BucketName: "secrets", FilePath: "a.mp3"},
			expectedError: apperrors.ErrInvalidInput,
		},
		{
			name:          "path traversal",
			req:           &models.DeleteStorageFileRequest{BucketName: "beats", FilePath: "../../etc/passwd"},
			expectedError: apperrors.ErrInvalidInput,
		},
		{
			name:          "empty path",
			req:           &models.DeleteStorageFileRequest{BucketName: "images", FilePath: ""},
			expectedError: apperrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newMockObjectStorage()
			svc := newTestStorageService(objects)

			err := svc.DeleteFile(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, objects.deleted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.expectedKey}, objects.deleted)
		})
	}
}

func TestStorageService_ListFiles(t *testing.T) {
	objects := newMockObjectStorage()
	objects.files["beats/a.mp3"] = "abc"
	svc := newTestStorageService(objects)

	list, err := svc.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].Size)

	objects.listErr = errors.New("io error")
	_, err = svc.ListFiles(context.Background())
	assert.Error(t, err)
}

func TestStorageService_Upload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		objects := newMockObjectStorage()
		svc := newTestStorageService(objects)

		resp, err := svc.Upload(context.Background(), "images", "cover.PNG", "image/png", strings.NewReader("png-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "images", resp.Bucket)
		assert.True(t, strings.HasSuffix(resp.Path, ".png"))
		assert.Equal(t, "png-bytes", objects.files["images/"+resp.Path])
	})

	t.Run("empty file is removed", func(t *testing.T) {
		objects := newMockObjectStorage()
		svc := newTestStorageService(objects)

		_, err := svc.Upload(context.Background(), "images", "cover.png", "image/png", strings.NewReader(""))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, objects.files)
	})

	t.Run("unknown bucket", func(t *testing.T) {
		svc := newTestStorageService(newMockObjectStorage())

		_, err := svc.Upload(context.Background(), "tmp", "a.mp3", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestStorageService_SignURL(t *testing.T) {
	signer := service.NewObjectSigner("storage-secret")
	svc := NewStorageService(newMockObjectStorage(), signer, "https://beats.example.com", time.Minute, zap.NewNop())

	signed, err := svc.SignURL("beats", "2024/03/a b.mp3")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), signed.ExpiresAt, 5*time.Second)

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	assert.Equal(t, "beats.example.com", u.Host)
	assert.Equal(t, "/api/v1/storage/beats/2024/03/a b.mp3", u.Path)
	assert.NoError(t, signer.Verify(u.Query().Get("token"), "beats", "2024/03/a b.mp3"))

	_, err = svc.SignURL("nope", "a.mp3")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestStorageService_OpenSigned(t *testing.T) {
	signer := service.NewObjectSigner("storage-secret")
	svc := NewStorageService(newMockObjectStorage(), signer, "https://beats.example.com", time.Minute, zap.NewNop())

	_, err := svc.OpenSigned(context.Background(), "beats", "a.mp3", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	token, _, err := signer.Sign("beats", "other.mp3", time.Minute)
	require.NoError(t, err)
	_, err = svc.OpenSigned(context.Background(), "beats", "a.mp3", token)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	token, _, err = signer.Sign("beats", "a.mp3", time.Minute)
	require.NoError(t, err)
	_, err = svc.OpenSigned(context.Background(), "beats", "a.mp3", token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStorageService_OpenPublic(t *testing.T) {
	svc := newTestStorageService(newMockObjectStorage())

	_, err := svc.OpenPublic(context.Background(), "../beats/a.mp3")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.OpenPublic(context.Background(), "covers/a.png")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
