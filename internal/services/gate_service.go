package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/whatifmusic/beatwave/internal/gate"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/storage"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"go.uber.org/zap"
)

// GateSessionStore is the interface that wraps gate session persistence
type GateSessionStore interface {
	// Method Put stores the session and restarts its TTL.
	Put(ctx context.Context, session *models.GateSession, ttl time.Duration) error
	// Method Get loads a session.
	//
	// If the session does not exist or has expired, an error wrapping apperrors.ErrNotFound is returned.
	Get(ctx context.Context, id string) (*models.GateSession, error)
	// Method Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// ItemLookup retrieves catalog items
type ItemLookup interface {
	GetByID(ctx context.Context, contentType models.ContentType, id string) (*models.ContentItem, error)
}

// DownloadRecorder subscribes gate emails and records downloads
type DownloadRecorder interface {
	Subscribe(ctx context.Context, email string) (bool, error)
	Record(ctx context.Context, req *models.RecordDownloadRequest, ipAddress string) (*models.RecordDownloadResponse, error)
}

// ObjectURLSigner issues short lived object links
type ObjectURLSigner interface {
	SignURL(bucket, objectPath string) (*models.SignedURL, error)
}

// GateRefusal is returned when the gate refuses an action.
// It carries the user facing warning and the current gate.
type GateRefusal struct {
	Warning *gate.Warning
	View    models.GateView
}

func (e *GateRefusal) Error() string {
	return e.Warning.Error()
}

func (e *GateRefusal) Unwrap() error {
	return e.Warning
}

type gateService struct {
	store     GateSessionStore
	items     ItemLookup
	downloads DownloadRecorder
	urls      ObjectURLSigner
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewGateService creates a new download gate service.
//
// ttl is the lifetime of an idle gate session.
func NewGateService(
	store GateSessionStore,
	items ItemLookup,
	downloads DownloadRecorder,
	urls ObjectURLSigner,
	ttl time.Duration,
	logger *zap.Logger,
) *gateService {
	return &gateService{
		store:     store,
		items:     items,
		downloads: downloads,
		urls:      urls,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// Open starts a new download dialog for an existing item
func (s *gateService) Open(ctx context.Context, req *models.OpenGateRequest) (*models.GateView, error) {
	contentType, err := parseContentType(req.ItemType)
	if err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: item_id is required", apperrors.ErrInvalidInput)
	}

	if _, err := s.items.GetByID(ctx, contentType, itemID); err != nil {
		return nil, err
	}

	session := &models.GateSession{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		ItemType:  contentType,
		Gate:      *gate.New(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	view := session.View()
	return &view, nil
}

// Get returns the current gate, with the ad countdown advanced to the present
func (s *gateService) Get(ctx context.Context, id string) (*models.GateView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	view := session.View()
	return &view, nil
}

// SelectMethod switches the unlock method. Progress of the previous method is discarded.
func (s *gateService) SelectMethod(ctx context.Context, id, method string) (*models.GateView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	m := gate.Method(strings.ToLower(strings.TrimSpace(method)))
	if err := session.Gate.SelectMethod(m); err != nil {
		return nil, s.refuse(session, err)
	}

	session.TicksApplied = 0
	session.AdStartedAt = nil
	if m == gate.MethodAd {
		started := s.now().UTC()
		session.AdStartedAt = &started
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	view := session.View()
	return &view, nil
}

// UpdateEmail updates the email form of an email mode gate
func (s *gateService) UpdateEmail(ctx context.Context, id string, req *models.GateEmailRequest) (*models.GateView, error) {
	if req.Email == nil && req.Consent == nil {
		return nil, fmt.Errorf("%w: email or consent is required", apperrors.ErrInvalidInput)
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		if err := session.Gate.SetEmail(*req.Email); err != nil {
			return nil, s.refuse(session, err)
		}
	}
	if req.Consent != nil {
		if err := session.Gate.SetConsent(*req.Consent); err != nil {
			return nil, s.refuse(session, err)
		}
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	view := session.View()
	return &view, nil
}

// Download completes an unlocked gate.
//
// In email mode the address is subscribed first, then the download is recorded and a short lived
// link to the file is signed. If any step fails the gate goes back to unlocked so the visitor
// can retry. On success the session is closed.
func (s *gateService) Download(ctx context.Context, id, userAgent, ipAddress string) (*models.GateDownloadResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := session.Gate.BeginDownload(); err != nil {
		return nil, s.refuse(session, err)
	}
	// A second request on the session must see the download in progress
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	resp, err := s.download(ctx, session, userAgent, ipAddress)
	if err != nil {
		session.Gate.Abort()
		if saveErr := s.save(ctx, session); saveErr != nil {
			s.logger.Warn("failed to store aborted gate", zap.String("session_id", id), zap.Error(saveErr))
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to close gate session", zap.String("session_id", id), zap.Error(err))
	}

	s.logger.Info("gated download completed",
		zap.String("item_id", session.ItemID),
		zap.String("item_type", string(session.ItemType)),
		zap.String("method", string(session.Gate.Method)),
	)
	return resp, nil
}

func (s *gateService) download(ctx context.Context, session *models.GateSession, userAgent, ipAddress string) (*models.GateDownloadResponse, error) {
	item, err := s.items.GetByID(ctx, session.ItemType, session.ItemID)
	if err != nil {
		return nil, err
	}

	var email *string
	if session.Gate.Method == gate.MethodEmail {
		if _, err := s.downloads.Subscribe(ctx, session.Gate.Email); err != nil {
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
		email = &session.Gate.Email
	}

	record, err := s.downloads.Record(ctx, &models.RecordDownloadRequest{
		ItemID:    item.ID,
		ItemType:  string(item.Type),
		Email:     email,
		UserAgent: &userAgent,
	}, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to record download: %w", err)
	}

	signed, err := s.urls.SignURL(item.Type.Bucket(), item.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download url: %w", err)
	}

	return &models.GateDownloadResponse{
		SignedURL: signed.URL,
		ExpiresAt: signed.ExpiresAt,
		FileName:  storage.DownloadFileName(item.Title, item.FilePath),
		Downloads: record.Downloads,
	}, nil
}

// Close discards the dialog. Nothing of it survives into the next opening.
func (s *gateService) Close(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// load fetches a session and replays the ad seconds elapsed since the last access
func (s *gateService) load(ctx context.Context, id string) (*models.GateSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.replay(session) {
		if err := s.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// replay applies one Tick per whole second elapsed since the ad started that was not applied yet
func (s *gateService) replay(session *models.GateSession) bool {
	if session.Gate.Method != gate.MethodAd || session.AdStartedAt == nil {
		return false
	}

	elapsed := int(s.now().Sub(*session.AdStartedAt) / time.Second)
	due := elapsed - session.TicksApplied
	if due <= 0 {
		return false
	}

	for i := 0; i < due && session.Gate.Tick(); i++ {
	}
	session.TicksApplied = elapsed
	return true
}

func (s *gateService) save(ctx context.Context, session *models.GateSession) error {
	if err := s.store.Put(ctx, session, s.ttl); err != nil {
		s.logger.Error("failed to store gate session", zap.String("session_id", session.ID), zap.Error(err))
		return err
	}
	return nil
}

// refuse wraps a gate warning with the current gate. Other errors are returned as is.
func (s *gateService) refuse(session *models.GateSession, err error) error {
	var warning *gate.Warning
	if !errors.As(err, &warning) {
		return err
	}
	return &GateRefusal{Warning: warning, View: session.View()}
}
