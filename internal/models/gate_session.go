package models

import (
	"time"

	"github.com/whatifmusic/beatwave/internal/gate"
)

// GateSession is a download dialog held server side between requests
type GateSession struct {
	ID       string      `json:"id"`
	ItemID   string      `json:"item_id"`
	ItemType ContentType `json:"item_type"`
	Gate     gate.Gate   `json:"gate"`
	// AdStartedAt is set when the ad method was chosen; elapsed seconds are replayed as ticks
	AdStartedAt  *time.Time `json:"ad_started_at,omitempty"`
	TicksApplied int        `json:"ticks_applied"`
	CreatedAt    time.Time  `json:"created_at"`
}

// GateView is what clients see of a gate session
type GateView struct {
	SessionID   string      `json:"session_id"`
	ItemID      string      `json:"item_id"`
	ItemType    ContentType `json:"item_type"`
	State       gate.State  `json:"state"`
	Method      gate.Method `json:"method"`
	Countdown   int         `json:"countdown"`
	AdViewed    bool        `json:"ad_viewed"`
	Email       string      `json:"email,omitempty"`
	Consent     bool        `json:"consent"`
	CanDownload bool        `json:"can_download"`
}

// View returns the client representation of the session
func (s *GateSession) View() GateView {
	return GateView{
		SessionID:   s.ID,
		ItemID:      s.ItemID,
		ItemType:    s.ItemType,
		State:       s.Gate.State,
		Method:      s.Gate.Method,
		Countdown:   s.Gate.Countdown,
		AdViewed:    s.Gate.AdViewed,
		Email:       s.Gate.Email,
		Consent:     s.Gate.Consent,
		CanDownload: s.Gate.CanDownload(),
	}
}

// OpenGateRequest opens a download dialog for an item
type OpenGateRequest struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
}

// SelectMethodRequest chooses the unlock method
type SelectMethodRequest struct {
	Method string `json:"method"`
}

// GateEmailRequest updates the email form; nil fields are left untouched
type GateEmailRequest struct {
	Email   *string `json:"email"`
	Consent *bool   `json:"consent"`
}

// GateDownloadResponse carries the signed link of an unlocked download
type GateDownloadResponse struct {
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
	FileName  string    `json:"file_name"`
	Downloads int64     `json:"downloads"`
}
