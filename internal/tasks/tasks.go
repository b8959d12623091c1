// Package tasks defines the newsletter background tasks and their payloads
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeNewsletterWelcome greets a new newsletter subscriber
	TypeNewsletterWelcome = "newsletter:welcome"
	// TypeNewsletterDigest mails recent catalog additions to every subscriber
	TypeNewsletterDigest = "newsletter:digest"

	QueueImmediate = "immediate"
	QueueDefault   = "default"
)

// WelcomePayload is the payload of a welcome task
type WelcomePayload struct {
	Email string `json:"email"`
}

// DigestPayload is the payload of a digest task
type DigestPayload struct {
	Since time.Time `json:"since"`
}

// NewWelcomeTask creates a welcome task for email
func NewWelcomeTask(email string) (*asynq.Task, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	payload, err := json.Marshal(WelcomePayload{Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal welcome payload: %w", err)
	}
	return asynq.NewTask(TypeNewsletterWelcome, payload, asynq.MaxRetry(5)), nil
}

// NewDigestTask creates a digest task covering items created after since
func NewDigestTask(since time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(DigestPayload{Since: since.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal digest payload: %w", err)
	}
	return asynq.NewTask(TypeNewsletterDigest, payload, asynq.MaxRetry(3)), nil
}

// ParseWelcomePayload decodes the payload of a welcome task
func ParseWelcomePayload(t *asynq.Task) (WelcomePayload, error) {
	var p WelcomePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal welcome payload: %w", err)
	}
	if p.Email == "" {
		return p, fmt.Errorf("welcome payload has no email")
	}
	return p, nil
}

// ParseDigestPayload decodes the payload of a digest task
func ParseDigestPayload(t *asynq.Task) (DigestPayload, error) {
	var p DigestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal digest payload: %w", err)
	}
	return p, nil
}

// TaskEnqueuer is the subset of *asynq.Client used by the mail queue
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MailQueue enqueues newsletter mail tasks
type MailQueue struct {
	client TaskEnqueuer
	logger *zap.Logger
}

// NewMailQueue creates a new mail queue
func NewMailQueue(client TaskEnqueuer, logger *zap.Logger) *MailQueue {
	return &MailQueue{client: client, logger: logger}
}

// EnqueueWelcome schedules the welcome mail of a new subscriber
func (q *MailQueue) EnqueueWelcome(ctx context.Context, email string) error {
	task, err := NewWelcomeTask(email)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueImmediate))
	if err != nil {
		return fmt.Errorf("failed to enqueue welcome task: %w", err)
	}

	q.logger.Debug("welcome task enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

// EnqueueDigest schedules a digest of items created since the given time.
// Only one digest can be pending per hour.
func (q *MailQueue) EnqueueDigest(ctx context.Context, since time.Time) error {
	task, err := NewDigestTask(since)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue digest task: %w", err)
	}

	q.logger.Info("digest task enqueued", zap.String("task_id", info.ID), zap.Time("since", since))
	return nil
}
