// Package gate implements the download gate: before a download link is issued the visitor
// either waits out an ad countdown or submits an email with newsletter consent.
//
// A Gate is a plain value with no internal locking. It is serialized between requests
// and must not be shared between goroutines without external synchronization.
package gate

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// State is a step of the gate flow
type State string

const (
	StateClosed         State = "closed"
	StateMethodSelected State = "method_selected"
	StateWaitingUnlock  State = "waiting_unlock"
	StateUnlocked       State = "unlocked"
	StateDownloading    State = "downloading"
)

// Method is the way the visitor pays for the download
type Method string

const (
	MethodNone  Method = ""
	MethodAd    Method = "ad"
	MethodEmail Method = "email"
)

// AdCountdown is the number of one second ticks of the ad
const AdCountdown = 5

// tickInterval is the length of one ad tick
var tickInterval = time.Second

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// MaxEmailLength is the width of every email column
const MaxEmailLength = 320

// ValidateEmail reports whether s is a syntactically valid email address that fits the email columns
func ValidateEmail(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= MaxEmailLength && emailPattern.MatchString(s)
}

// Gate is the state of one download dialog
type Gate struct {
	State     State  `json:"state"`
	Method    Method `json:"method"`
	Countdown int    `json:"countdown"`
	AdViewed  bool   `json:"ad_viewed"`
	Email     string `json:"email"`
	Consent   bool   `json:"consent"`
}

// New returns a gate for a freshly opened dialog
func New() *Gate {
	g := &Gate{}
	g.Close()
	return g
}

// SelectMethod switches to method m, discarding the progress of the previous method
func (g *Gate) SelectMethod(m Method) error {
	if g.State == StateDownloading {
		return ErrDownloadInProgress
	}

	switch m {
	case MethodAd:
		g.reset()
		g.Method = MethodAd
		g.State = StateWaitingUnlock
	case MethodEmail:
		g.reset()
		g.Method = MethodEmail
		g.State = StateMethodSelected
	default:
		return ErrUnknownMethod
	}

	return nil
}

// Tick advances the ad countdown by one second.
// It returns true when the countdown moved.
func (g *Gate) Tick() bool {
	if g.Method != MethodAd || g.State != StateWaitingUnlock || g.Countdown <= 0 {
		return false
	}

	g.Countdown--
	if g.Countdown == 0 {
		g.AdViewed = true
		g.State = StateUnlocked
	}
	return true
}

// SetEmail stores the visitor's email in email mode
func (g *Gate) SetEmail(email string) error {
	if err := g.requireEmailMode(); err != nil {
		return err
	}

	g.Email = strings.TrimSpace(email)
	g.evaluateEmail()
	return nil
}

// SetConsent stores the newsletter consent in email mode
func (g *Gate) SetConsent(consent bool) error {
	if err := g.requireEmailMode(); err != nil {
		return err
	}

	g.Consent = consent
	g.evaluateEmail()
	return nil
}

// CanDownload reports whether the unlock condition is met
func (g *Gate) CanDownload() bool {
	return g.State == StateUnlocked
}

// BeginDownload moves an unlocked gate to downloading.
// Before the unlock condition is met it returns the Warning explaining what is missing
// and leaves the gate untouched.
func (g *Gate) BeginDownload() error {
	switch {
	case g.State == StateDownloading:
		return ErrDownloadInProgress
	case g.State == StateUnlocked:
		g.State = StateDownloading
		return nil
	case g.Method == MethodAd:
		return ErrAdNotFinished
	case g.Method == MethodEmail && !ValidateEmail(g.Email):
		return ErrInvalidEmail
	case g.Method == MethodEmail && !g.Consent:
		return ErrConsentRequired
	default:
		return ErrNoMethod
	}
}

// Abort returns a downloading gate to unlocked after a failed download step
func (g *Gate) Abort() {
	if g.State == StateDownloading {
		g.State = StateUnlocked
	}
}

// Close resets every transient field. Nothing survives into the next opening.
func (g *Gate) Close() {
	g.reset()
	g.Method = MethodNone
	g.State = StateClosed
}

func (g *Gate) reset() {
	g.Countdown = AdCountdown
	g.AdViewed = false
	g.Email = ""
	g.Consent = false
}

func (g *Gate) requireEmailMode() error {
	if g.Method != MethodEmail {
		return ErrWrongMethod
	}
	if g.State == StateDownloading {
		return ErrDownloadInProgress
	}
	return nil
}

func (g *Gate) evaluateEmail() {
	switch {
	case ValidateEmail(g.Email) && g.Consent:
		g.State = StateUnlocked
	case g.Email == "" && !g.Consent:
		g.State = StateMethodSelected
	default:
		g.State = StateWaitingUnlock
	}
}

// Countdown runs the ad ticker for g, calling onTick with the remaining seconds after every tick.
// It returns nil once the gate unlocks and ctx.Err() when ctx is cancelled first.
// g must not be touched by anyone else while Countdown runs.
func Countdown(ctx context.Context, g *Gate, onTick func(remaining int)) error {
	if g.Method != MethodAd {
		return ErrWrongMethod
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for g.State == StateWaitingUnlock {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.Tick() && onTick != nil {
				onTick(g.Countdown)
			}
		}
	}

	return nil
}
