package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ContentType identifies one of the three catalog collections
type ContentType string

const (
	ContentTypeBeat     ContentType = "beat"
	ContentTypeRemix    ContentType = "remix"
	ContentTypeCoverArt ContentType = "cover_art"
)

// ContentTypes lists every catalog collection
var ContentTypes = []ContentType{ContentTypeBeat, ContentTypeRemix, ContentTypeCoverArt}

// ParseContentType accepts the singular type name or the plural collection segment used in URLs
// ("beats", "remixes", "cover-art")
func ParseContentType(s string) (ContentType, bool) {
	switch s {
	case "beat", "beats":
		return ContentTypeBeat, true
	case "remix", "remixes":
		return ContentTypeRemix, true
	case "cover_art", "cover-art", "coverart":
		return ContentTypeCoverArt, true
	default:
		return "", false
	}
}

// Table returns the table holding items of this type
func (t ContentType) Table() string {
	switch t {
	case ContentTypeBeat:
		return "beats"
	case ContentTypeRemix:
		return "remixes"
	case ContentTypeCoverArt:
		return "cover_art"
	default:
		return ""
	}
}

// Collection returns the plural URL segment of this type
func (t ContentType) Collection() string {
	if t == ContentTypeCoverArt {
		return "cover-art"
	}
	return t.Table()
}

// Bucket returns the storage bucket holding the media of this type
func (t ContentType) Bucket() string {
	switch t {
	case ContentTypeBeat:
		return BucketBeats
	case ContentTypeRemix:
		return BucketRemixes
	case ContentTypeCoverArt:
		return BucketCoverArt
	default:
		return ""
	}
}

// Tags is a set of descriptive tags stored as a JSON array
type Tags []string

// Value implements driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	*t = tags
	return nil
}

// ContentItem is a beat, remix or cover art entry of the catalog
type ContentItem struct {
	ID         string      `json:"id"`
	Type       ContentType `json:"type"`
	Title      string      `json:"title"`
	Creator    string      `json:"creator"`
	FilePath   string      `json:"file_path"`
	ImageURL   *string     `json:"image_url,omitempty"`
	Tags       Tags        `json:"tags"`
	BPM        *int        `json:"bpm,omitempty"`
	MusicalKey *string     `json:"musical_key,omitempty"`
	Downloads  int64       `json:"downloads"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// BeatFilter narrows the beats query. Zero values impose no constraint.
type BeatFilter struct {
	BPM     *int
	Key     string
	Tags    []string
	Title   string
	Creator string
}

// ContentRequest is the body of admin create and update calls.
// On update nil fields are left untouched.
type ContentRequest struct {
	Title      *string   `json:"title"`
	Creator    *string   `json:"creator"`
	FilePath   *string   `json:"file_path"`
	ImageURL   *string   `json:"image_url"`
	Tags       *[]string `json:"tags"`
	BPM        *int      `json:"bpm"`
	MusicalKey *string   `json:"musical_key"`
}
