package gate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"  padded@example.org  ", true},
		{"under_score%x@ex-ample.io", true},
		{"", false},
		{"   ", false},
		{"userexample.com", false},
		{"user@", false},
		{"@example.com", false},
		{"user@example", false},
		{"user@example.c", false},
		{"user@@example.com", false},
		{"user name@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.email))
		})
	}
}

func TestValidateEmail_Length(t *testing.T) {
	domain := "@example.com"
	fits := strings.Repeat("a", MaxEmailLength-len(domain)) + domain
	tooLong := "a" + fits

	assert.True(t, ValidateEmail(fits))
	assert.True(t, ValidateEmail("  "+fits+"  "))
	assert.False(t, ValidateEmail(tooLong))
}

func TestNew(t *testing.T) {
	g := New()

	assert.Equal(t, StateClosed, g.State)
	assert.Equal(t, MethodNone, g.Method)
	assert.Equal(t, AdCountdown, g.Countdown)
	assert.False(t, g.CanDownload())
	assert.ErrorIs(t, g.BeginDownload(), ErrNoMethod)
}

func TestGate_AdFlow(t *testing.T) {
	g := New()
	require.NoError(t, g.SelectMethod(MethodAd))

	assert.Equal(t, StateWaitingUnlock, g.State)
	assert.Equal(t, 5, g.Countdown)
	assert.False(t, g.AdViewed)

	for i := 4; i >= 1; i-- {
		assert.True(t, g.Tick())
		assert.Equal(t, i, g.Countdown)
		assert.False(t, g.AdViewed)

		before := *g
		assert.ErrorIs(t, g.BeginDownload(), ErrAdNotFinished)
		assert.Equal(t, before, *g, "refused download must not change state")
	}

	assert.True(t, g.Tick())
	assert.Equal(t, 0, g.Countdown)
	assert.True(t, g.AdViewed)
	assert.Equal(t, StateUnlocked, g.State)

	// Further ticks are ignored
	assert.False(t, g.Tick())
	assert.Equal(t, 0, g.Countdown)

	require.NoError(t, g.BeginDownload())
	assert.Equal(t, StateDownloading, g.State)
	assert.ErrorIs(t, g.BeginDownload(), ErrDownloadInProgress)
}

func TestGate_EmailFlow(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		consent       bool
		expectedState State
		expectedErr   error
	}{
		{"valid email with consent", "user@example.com", true, StateUnlocked, nil},
		{"valid email without consent", "user@example.com", false, StateWaitingUnlock, ErrConsentRequired},
		{"invalid email with consent", "user@", true, StateWaitingUnlock, ErrInvalidEmail},
		{"blank email without consent", "", false, StateMethodSelected, ErrInvalidEmail},
		{"missing domain", "user@example", true, StateWaitingUnlock, ErrInvalidEmail},
		{"email longer than the column", strings.Repeat("a", MaxEmailLength) + "@example.com", true, StateWaitingUnlock, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			require.NoError(t, g.SelectMethod(MethodEmail))
			assert.Equal(t, StateMethodSelected, g.State)

			require.NoError(t, g.SetEmail(tt.email))
			require.NoError(t, g.SetConsent(tt.consent))

			assert.Equal(t, tt.expectedState, g.State)
			assert.Equal(t, tt.expectedErr == nil, g.CanDownload())

			err := g.BeginDownload()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Equal(t, tt.expectedState, g.State)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, StateDownloading, g.State)
			}
		})
	}
}

func TestGate_EmailRevokingConsentRelocks(t *testing.T) {
	g := New()
	require.NoError(t, g.SelectMethod(MethodEmail))
	require.NoError(t, g.SetEmail("user@example.com"))
	require.NoError(t, g.SetConsent(true))
	require.True(t, g.CanDownload())

	require.NoError(t, g.SetConsent(false))
	assert.False(t, g.CanDownload())
	assert.ErrorIs(t, g.BeginDownload(), ErrConsentRequired)
}

func TestGate_SwitchingMethodResets(t *testing.T) {
	g := New()
	require.NoError(t, g.SelectMethod(MethodAd))
	g.Tick()
	g.Tick()
	require.Equal(t, 3, g.Countdown)

	require.NoError(t, g.SelectMethod(MethodEmail))
	require.NoError(t, g.SetEmail("user@example.com"))
	require.NoError(t, g.SetConsent(true))
	require.True(t, g.CanDownload())

	require.NoError(t, g.SelectMethod(MethodAd))
	assert.Equal(t, AdCountdown, g.Countdown)
	assert.False(t, g.AdViewed)
	assert.Empty(t, g.Email)
	assert.False(t, g.Consent)
	assert.Equal(t, StateWaitingUnlock, g.State)

	// A finished ad does not carry over to the email method
	for range AdCountdown {
		g.Tick()
	}
	require.True(t, g.AdViewed)
	require.NoError(t, g.SelectMethod(MethodEmail))
	assert.False(t, g.AdViewed)
	assert.Equal(t, AdCountdown, g.Countdown)
	assert.False(t, g.CanDownload())
}

func TestGate_WrongMethodActions(t *testing.T) {
	g := New()
	assert.ErrorIs(t, g.SetEmail("user@example.com"), ErrWrongMethod)
	assert.ErrorIs(t, g.SetConsent(true), ErrWrongMethod)
	assert.ErrorIs(t, g.SelectMethod("paypal"), ErrUnknownMethod)

	require.NoError(t, g.SelectMethod(MethodEmail))
	assert.False(t, g.Tick(), "ticks only apply to the ad method")
}

func TestGate_AbortAndClose(t *testing.T) {
	g := New()
	require.NoError(t, g.SelectMethod(MethodEmail))
	require.NoError(t, g.SetEmail("user@example.com"))
	require.NoError(t, g.SetConsent(true))
	require.NoError(t, g.BeginDownload())

	assert.ErrorIs(t, g.SelectMethod(MethodAd), ErrDownloadInProgress)
	assert.ErrorIs(t, g.SetEmail("other@example.com"), ErrDownloadInProgress)

	g.Abort()
	assert.Equal(t, StateUnlocked, g.State)
	assert.Equal(t, "user@example.com", g.Email)

	g.Close()
	assert.Equal(t, *New(), *g)
}

func TestWarning_Error(t *testing.T) {
	assert.Equal(t, "Consent Required: Please agree to receive our newsletter to continue.", ErrConsentRequired.Error())
}

func TestCountdown(t *testing.T) {
	tickInterval = time.Millisecond
	defer func() { tickInterval = time.Second }()

	t.Run("unlocks after five ticks", func(t *testing.T) {
		g := New()
		require.NoError(t, g.SelectMethod(MethodAd))

		var remaining []int
		err := Countdown(context.Background(), g, func(r int) { remaining = append(remaining, r) })

		require.NoError(t, err)
		assert.Equal(t, []int{4, 3, 2, 1, 0}, remaining)
		assert.True(t, g.AdViewed)
		assert.Equal(t, StateUnlocked, g.State)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		g := New()
		require.NoError(t, g.SelectMethod(MethodAd))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Countdown(ctx, g, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, g.AdViewed)
	})

	t.Run("requires ad method", func(t *testing.T) {
		g := New()
		assert.ErrorIs(t, Countdown(context.Background(), g, nil), ErrWrongMethod)
	})
}
