package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/whatifmusic/beatwave/internal/gate"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// DownloadRepository is the interface that wraps download bookkeeping
type DownloadRepository interface {
	// Method Record increments the item's download counter and appends the download record
	// in one transaction.
	//
	// It returns the new counter value. If the item does not exist, an error wrapping
	// apperrors.ErrNotFound is returned and nothing is written.
	Record(ctx context.Context, download *models.Download) (int64, error)
}

// SubscriberRepository is the interface that wraps newsletter_subscribers data access
type SubscriberRepository interface {
	// Method Subscribe inserts the email unless it is already subscribed.
	//
	// It returns true when the address was not subscribed before.
	Subscribe(ctx context.Context, email string) (bool, error)
}

// WelcomeMailer schedules the welcome mail of a new subscriber
type WelcomeMailer interface {
	EnqueueWelcome(ctx context.Context, email string) error
}

const maxUserAgentLength = 512

type downloadService struct {
	downloads   DownloadRepository
	subscribers SubscriberRepository
	mailer      WelcomeMailer
	logger      *zap.Logger
}

// NewDownloadService creates a new download service
func NewDownloadService(downloads DownloadRepository, subscribers SubscriberRepository, mailer WelcomeMailer, logger *zap.Logger) *downloadService {
	return &downloadService{
		downloads:   downloads,
		subscribers: subscribers,
		mailer:      mailer,
		logger:      logger,
	}
}

// Record counts one download of an item and stores who downloaded it.
// ipAddress is taken from the request by the caller.
func (s *downloadService) Record(ctx context.Context, req *models.RecordDownloadRequest, ipAddress string) (*models.RecordDownloadResponse, error) {
	contentType, err := parseContentType(req.ItemType)
	if err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: itemId is required", apperrors.ErrInvalidInput)
	}

	download := &models.Download{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		ItemType:  contentType,
		IPAddress: optionalString(ipAddress),
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != "" && !gate.ValidateEmail(email) {
			return nil, fmt.Errorf("%w: invalid email format", apperrors.ErrInvalidInput)
		}
		download.Email = optionalString(email)
	}
	if req.UserAgent != nil {
		ua := strings.ToValidUTF8(strings.TrimSpace(*req.UserAgent), "")
		download.UserAgent = optionalString(truncateUTF8(ua, maxUserAgentLength))
	}

	downloads, err := s.downloads.Record(ctx, download)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("download recorded",
		zap.String("item_id", itemID),
		zap.String("item_type", string(contentType)),
		zap.Int64("downloads", downloads),
	)
	return &models.RecordDownloadResponse{Success: true, Downloads: downloads}, nil
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Subscribe adds email to the newsletter. Subscribing twice is a success.
//
// The first subscription of an address schedules a welcome mail; a queue failure is logged only.
func (s *downloadService) Subscribe(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !gate.ValidateEmail(email) {
		return false, fmt.Errorf("%w: invalid email format", apperrors.ErrInvalidInput)
	}

	created, err := s.subscribers.Subscribe(ctx, email)
	if err != nil {
		s.logger.Error("failed to subscribe", zap.Error(err))
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}

	if created {
		if err := s.mailer.EnqueueWelcome(ctx, email); err != nil {
			s.logger.Warn("failed to enqueue welcome mail", zap.Error(err))
		}
	}

	return created, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
