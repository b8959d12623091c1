package storage

import (
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateObjectPath generates a new object path of the form "2006/01/<uuid><ext>".
// The extension comes from the original file name, falling back to the content type.
func GenerateObjectPath(originalName, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ExtensionForContentType(contentType)
	}
	return now.UTC().Format("2006/01") + "/" + GenerateFileName(ext)
}

// DownloadFileName returns the file name offered to the browser: the item title
// with the stored object's extension. Characters unsafe in file names are replaced.
func DownloadFileName(title, objectPath string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return path.Base(objectPath)
	}

	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, title)
	return safe + strings.ToLower(path.Ext(objectPath))
}

// GenerateFileName generates a new file name based on the file extension
// It creates a UUID-based filename with the provided extension
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + extension
	}
	return newUUID + extension
}

// ExtensionForContentType infers a file extension from a MIME type, or returns an empty string
func ExtensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	known := map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"audio/mpeg":      ".mp3",
		"audio/wav":       ".wav",
		"audio/x-wav":     ".wav",
		"audio/ogg":       ".ogg",
		"audio/flac":      ".flac",
		"application/zip": ".zip",
	}
	return known[mediaType]
}

// sizeWriter counts the bytes written through it
type sizeWriter struct {
	size int64
}

// Write implements io.Writer interface
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new SizeWriter instance
func NewSizeWriter() *sizeWriter {
	return &sizeWriter{}
}
