package models

import (
	"slices"
	"time"
)

// Storage buckets
const (
	BucketBeats    = "beats"
	BucketRemixes  = "remixes"
	BucketCoverArt = "cover_art"
	BucketImages   = "images"
)

// Buckets lists every storage bucket
var Buckets = []string{BucketBeats, BucketRemixes, BucketCoverArt, BucketImages}

// IsBucket reports whether name is a known bucket
func IsBucket(name string) bool {
	return slices.Contains(Buckets, name)
}

// StorageObject describes a stored file
type StorageObject struct {
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeleteStorageFileRequest is the body of delete-storage-file
type DeleteStorageFileRequest struct {
	BucketName string `json:"bucketName"`
	FilePath   string `json:"filePath"`
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// SignedURL is a time limited download link
type SignedURL struct {
	URL       string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats is the dashboard overview
type Stats struct {
	Beats       int   `json:"beats"`
	Remixes     int   `json:"remixes"`
	CoverArt    int   `json:"cover_art"`
	Downloads   int64 `json:"downloads"`
	Subscribers int   `json:"subscribers"`
}
