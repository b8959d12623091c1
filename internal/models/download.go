package models

import "time"

// Download is an append-only record of a completed download
type Download struct {
	ID        string      `json:"id"`
	ItemID    string      `json:"item_id"`
	ItemType  ContentType `json:"item_type"`
	Email     *string     `json:"email,omitempty"`
	UserAgent *string     `json:"user_agent,omitempty"`
	IPAddress *string     `json:"ip_address,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// RecordDownloadRequest is the body of the record-download function
type RecordDownloadRequest struct {
	ItemID    string  `json:"itemId"`
	ItemType  string  `json:"itemType"`
	Email     *string `json:"email,omitempty"`
	UserAgent *string `json:"userAgent,omitempty"`
}

// RecordDownloadResponse is returned by record-download
type RecordDownloadResponse struct {
	Success   bool  `json:"success"`
	Downloads int64 `json:"downloads"`
}
