package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	digestWindow = 7 * 24 * time.Hour
	jobTimeout   = time.Minute
)

// DigestEnqueuer defines the interface for scheduling the newsletter digest
type DigestEnqueuer interface {
	// EnqueueDigest schedules a digest of items created since the given time
	EnqueueDigest(ctx context.Context, since time.Time) error
}

// TokenCleaner defines the interface for removing stale refresh tokens
type TokenCleaner interface {
	// DeleteExpiredTokens deletes tokens created before expiryTime and returns how many were removed
	DeleteExpiredTokens(ctx context.Context, expiryTime time.Time) (int, error)
}

// Scheduler runs the periodic jobs
type Scheduler struct {
	cron          *cron.Cron
	digests       DigestEnqueuer
	tokens        TokenCleaner
	refreshExpiry time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewScheduler creates a new scheduler instance
func NewScheduler(digests DigestEnqueuer, tokens TokenCleaner, refreshExpiry time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		digests:       digests,
		tokens:        tokens,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
		logger:        logger,
	}
}

// Register adds the digest and token cleanup jobs using standard 5 field cron expressions
func (s *Scheduler) Register(digestSpec, cleanupSpec string) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{name: "digest", spec: digestSpec, run: s.enqueueDigest},
		{name: "token cleanup", spec: cleanupSpec, run: s.cleanupTokens},
	}

	for _, job := range jobs {
		schedule, err := cron.ParseStandard(job.spec)
		if err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
		s.cron.Schedule(schedule, cron.FuncJob(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			job.run(ctx)
		}))
		s.logger.Info("Job scheduled", zap.String("job", job.name), zap.String("spec", job.spec), zap.Time("next_run", schedule.Next(s.now())))
	}

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// enqueueDigest schedules the digest of the last week
func (s *Scheduler) enqueueDigest(ctx context.Context) {
	since := s.now().Add(-digestWindow)
	if err := s.digests.EnqueueDigest(ctx, since); err != nil {
		s.logger.Error("Failed to enqueue digest", zap.Error(err))
		return
	}
	s.logger.Info("Digest enqueued", zap.Time("since", since))
}

// cleanupTokens deletes refresh tokens older than the refresh expiry
func (s *Scheduler) cleanupTokens(ctx context.Context) {
	deleted, err := s.tokens.DeleteExpiredTokens(ctx, s.now().Add(-s.refreshExpiry))
	if err != nil {
		s.logger.Error("Failed to delete expired tokens", zap.Error(err))
		return
	}
	s.logger.Info("Expired tokens deleted", zap.Int("count", deleted))
}
