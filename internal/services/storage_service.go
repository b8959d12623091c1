package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/storage"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// ObjectStorage is the interface that wraps bucket file operations
type ObjectStorage interface {
	// Method Create opens a new object for writing, creating parent directories.
	Create(bucket, objectPath string) (io.WriteCloser, error)
	// Method OpenFile opens an object for reading.
	//
	// If the object does not exist, an error wrapping apperrors.ErrNotFound is returned.
	OpenFile(bucket, objectPath string) (*os.File, error)
	// Method Delete removes an object.
	//
	// If the object does not exist, an error wrapping apperrors.ErrNotFound is returned.
	Delete(bucket, objectPath string) error
	// Method List returns every object of every bucket.
	List(ctx context.Context) ([]models.StorageObject, error)
}

// URLSigner issues and verifies object access tokens
type URLSigner interface {
	Sign(bucket, objectPath string, ttl time.Duration) (string, time.Time, error)
	Verify(token, bucket, objectPath string) error
}

type storageService struct {
	storage ObjectStorage
	signer  URLSigner
	baseURL string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStorageService creates a new storage service.
//
// baseURL is the public origin of the API used to build signed links, ttl their lifetime.
func NewStorageService(storage ObjectStorage, signer URLSigner, baseURL string, ttl time.Duration, logger *zap.Logger) *storageService {
	return &storageService{
		storage: storage,
		signer:  signer,
		baseURL: baseURL,
		ttl:     ttl,
		logger:  logger,
	}
}

// ListFiles returns the objects of every bucket
func (s *storageService) ListFiles(ctx context.Context) ([]models.StorageObject, error) {
	objects, err := s.storage.List(ctx)
	if err != nil {
		s.logger.Error("failed to list storage files", zap.Error(err))
		return nil, fmt.Errorf("failed to list storage files: %w", err)
	}
	return objects, nil
}

// DeleteFile deletes one object. The bucket must be known and the path must stay inside it.
func (s *storageService) DeleteFile(ctx context.Context, req *models.DeleteStorageFileRequest) error {
	if !models.IsBucket(req.BucketName) {
		return fmt.Errorf("%w: unknown bucket %q", apperrors.ErrInvalidInput, req.BucketName)
	}
	objectPath, err := storage.CleanObjectPath(req.FilePath)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(req.BucketName, objectPath); err != nil {
		return err
	}

	s.logger.Info("storage file deleted", zap.String("bucket", req.BucketName), zap.String("path", objectPath))
	return nil
}

// Upload stores the content of r in bucket under a generated path
func (s *storageService) Upload(ctx context.Context, bucket, originalName, contentType string, r io.Reader) (*models.UploadResponse, error) {
	if !models.IsBucket(bucket) {
		return nil, fmt.Errorf("%w: unknown bucket %q", apperrors.ErrInvalidInput, bucket)
	}

	objectPath := storage.GenerateObjectPath(originalName, contentType, time.Now())

	dst, err := s.storage.Create(bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}

	sw := storage.NewSizeWriter()
	if _, err := io.Copy(io.MultiWriter(dst, sw), r); err != nil {
		dst.Close()
		s.removeQuietly(bucket, objectPath)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.removeQuietly(bucket, objectPath)
		return nil, fmt.Errorf("failed to close object: %w", err)
	}

	if sw.Size() == 0 {
		s.removeQuietly(bucket, objectPath)
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrInvalidInput)
	}

	s.logger.Info("file uploaded",
		zap.String("bucket", bucket),
		zap.String("path", objectPath),
		zap.Int64("size", sw.Size()),
	)
	return &models.UploadResponse{Bucket: bucket, Path: objectPath}, nil
}

// SignURL returns a short lived link to an object
func (s *storageService) SignURL(bucket, objectPath string) (*models.SignedURL, error) {
	if !models.IsBucket(bucket) {
		return nil, fmt.Errorf("%w: unknown bucket %q", apperrors.ErrInvalidInput, bucket)
	}
	objectPath, err := storage.CleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(bucket, objectPath, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign object url: %w", err)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	u = u.JoinPath("api", "v1", "storage", bucket, objectPath)
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return &models.SignedURL{URL: u.String(), ExpiresAt: expiresAt}, nil
}

// OpenSigned opens an object after checking that token grants access to it.
// The caller must close the returned file.
func (s *storageService) OpenSigned(ctx context.Context, bucket, objectPath, token string) (*os.File, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing download token", apperrors.ErrUnauthenticated)
	}
	objectPath, err := storage.CleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	if err := s.signer.Verify(token, bucket, objectPath); err != nil {
		s.logger.Debug("rejected signed url", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return nil, fmt.Errorf("%w: download link is invalid or expired", apperrors.ErrForbidden)
	}

	return s.storage.OpenFile(bucket, objectPath)
}

// OpenPublic opens an object of the public images bucket. The caller must close the returned file.
func (s *storageService) OpenPublic(ctx context.Context, objectPath string) (*os.File, error) {
	objectPath, err := storage.CleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	return s.storage.OpenFile(models.BucketImages, objectPath)
}

func (s *storageService) removeQuietly(bucket, objectPath string) {
	if err := s.storage.Delete(bucket, objectPath); err != nil {
		s.logger.Warn("failed to remove partial upload", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
	}
}
