package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
)

// localStorage keeps every bucket as a directory under basePath
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// CleanObjectPath normalizes a slash separated object path.
// Absolute paths, empty paths and paths escaping the bucket are rejected.
func CleanObjectPath(objectPath string) (string, error) {
	objectPath = strings.ReplaceAll(strings.TrimSpace(objectPath), `\`, "/")
	if objectPath == "" || strings.HasPrefix(objectPath, "/") {
		return "", fmt.Errorf("%w: invalid file path %q", apperrors.ErrInvalidInput, objectPath)
	}

	cleaned := path.Clean(objectPath)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: invalid file path %q", apperrors.ErrInvalidInput, objectPath)
	}

	return cleaned, nil
}

// resolve returns the filesystem path of an object
func (s *localStorage) resolve(bucket, objectPath string) (string, error) {
	if !models.IsBucket(bucket) {
		return "", fmt.Errorf("%w: unknown bucket %q", apperrors.ErrInvalidInput, bucket)
	}

	cleaned, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.basePath, bucket, filepath.FromSlash(cleaned)), nil
}

// Create creates a new object and returns a WriteCloser
func (s *localStorage) Create(bucket, objectPath string) (io.WriteCloser, error) {
	fullPath, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	return os.Create(fullPath)
}

// OpenFile opens an object for use with http.ServeContent
func (s *localStorage) OpenFile(bucket, objectPath string) (*os.File, error) {
	fullPath, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", apperrors.ErrNotFound, bucket, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	// Directories are not objects
	if info, err := file.Stat(); err != nil || info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%w: %s/%s", apperrors.ErrNotFound, bucket, objectPath)
	}

	return file, nil
}

// Delete removes an object
func (s *localStorage) Delete(bucket, objectPath string) error {
	fullPath, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", apperrors.ErrNotFound, bucket, objectPath)
	}
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List returns every object of every bucket, sorted by bucket and path
func (s *localStorage) List(ctx context.Context) ([]models.StorageObject, error) {
	objects := []models.StorageObject{}

	for _, bucket := range models.Buckets {
		root := filepath.Join(s.basePath, bucket)

		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				// A bucket that was never written to has no directory yet
				if errors.Is(err, fs.ErrNotExist) && p == root {
					return filepath.SkipDir
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}

			objects = append(objects, models.StorageObject{
				Bucket:    bucket,
				Path:      filepath.ToSlash(rel),
				Size:      info.Size(),
				UpdatedAt: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Bucket != objects[j].Bucket {
			return objects[i].Bucket < objects[j].Bucket
		}
		return objects[i].Path < objects[j].Path
	})

	return objects, nil
}
