package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/tasks"
	"go.uber.org/zap"
)

// mockContentRepository is a mock implementation of ContentRepository
type mockContentRepository struct {
	items     []models.ContentItem
	err       error
	lastSince time.Time
}

func (m *mockContentRepository) GetCreatedSince(ctx context.Context, since time.Time) ([]models.ContentItem, error) {
	m.lastSince = since
	return m.items, m.err
}

// mockSubscriberRepository is a mock implementation of SubscriberRepository
type mockSubscriberRepository struct {
	emails []string
	err    error
}

func (m *mockSubscriberRepository) GetAllEmails(ctx context.Context) ([]string, error) {
	return m.emails, m.err
}

type sentMail struct {
	to, subject, body string
}

// mockMailer records sent mails; addresses in fail are rejected
type mockMailer struct {
	sent []sentMail
	fail map[string]bool
}

func (m *mockMailer) Send(to, subject, htmlBody string) error {
	if m.fail[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func newTestWorker(content *mockContentRepository, subscribers *mockSubscriberRepository, mailer *mockMailer) *Worker {
	return NewWorker(zap.NewNop(), content, subscribers, mailer, "https://whatifmusic.test")
}

func TestWorker_HandleWelcome(t *testing.T) {
	t.Run("sends mail", func(t *testing.T) {
		mailer := &mockMailer{}
		worker := newTestWorker(&mockContentRepository{}, &mockSubscriberRepository{}, mailer)
		task, err := tasks.NewWelcomeTask("fan@example.com")
		require.NoError(t, err)

		require.NoError(t, worker.HandleWelcome(context.Background(), task))

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "fan@example.com", mailer.sent[0].to)
		assert.Contains(t, mailer.sent[0].body, `href="https://whatifmusic.test"`)
	})

	t.Run("malformed payload is not retried", func(t *testing.T) {
		worker := newTestWorker(&mockContentRepository{}, &mockSubscriberRepository{}, &mockMailer{})
		task := asynq.NewTask(tasks.TypeNewsletterWelcome, []byte(`{"email":""}`))

		err := worker.HandleWelcome(context.Background(), task)

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("smtp failure is retried", func(t *testing.T) {
		mailer := &mockMailer{fail: map[string]bool{"fan@example.com": true}}
		worker := newTestWorker(&mockContentRepository{}, &mockSubscriberRepository{}, mailer)
		task, err := tasks.NewWelcomeTask("fan@example.com")
		require.NoError(t, err)

		err = worker.HandleWelcome(context.Background(), task)

		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestWorker_HandleDigest(t *testing.T) {
	since := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	items := []models.ContentItem{
		{ID: "b1", Type: models.ContentTypeBeat, Title: "Night <Drive>", Creator: "Kai"},
		{ID: "c1", Type: models.ContentTypeCoverArt, Title: "Neon", Creator: "Ada"},
	}
	newTask := func(t *testing.T) *asynq.Task {
		t.Helper()
		task, err := tasks.NewDigestTask(since)
		require.NoError(t, err)
		return task
	}

	t.Run("mails every subscriber", func(t *testing.T) {
		content := &mockContentRepository{items: items}
		mailer := &mockMailer{}
		worker := newTestWorker(content, &mockSubscriberRepository{emails: []string{"a@example.com", "b@example.com"}}, mailer)

		require.NoError(t, worker.HandleDigest(context.Background(), newTask(t)))

		assert.True(t, since.Equal(content.lastSince))
		require.Len(t, mailer.sent, 2)
		assert.Equal(t, "2 new releases on What If Music?", mailer.sent[0].subject)
		body := mailer.sent[0].body
		assert.Contains(t, body, "June 3, 2024")
		assert.Contains(t, body, "Night &lt;Drive&gt;")
		assert.Contains(t, body, "https://whatifmusic.test/cover-art/c1")
		assert.Contains(t, body, "(cover art)")
	})

	t.Run("no new items", func(t *testing.T) {
		mailer := &mockMailer{}
		worker := newTestWorker(&mockContentRepository{}, &mockSubscriberRepository{emails: []string{"a@example.com"}}, mailer)

		require.NoError(t, worker.HandleDigest(context.Background(), newTask(t)))

		assert.Empty(t, mailer.sent)
	})

	t.Run("partial failure succeeds", func(t *testing.T) {
		mailer := &mockMailer{fail: map[string]bool{"a@example.com": true}}
		worker := newTestWorker(&mockContentRepository{items: items}, &mockSubscriberRepository{emails: []string{"a@example.com", "b@example.com"}}, mailer)

		require.NoError(t, worker.HandleDigest(context.Background(), newTask(t)))

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "b@example.com", mailer.sent[0].to)
	})

	t.Run("total failure is retried", func(t *testing.T) {
		mailer := &mockMailer{fail: map[string]bool{"a@example.com": true}}
		worker := newTestWorker(&mockContentRepository{items: items}, &mockSubscriberRepository{emails: []string{"a@example.com"}}, mailer)

		assert.Error(t, worker.HandleDigest(context.Background(), newTask(t)))
	})

	t.Run("repository failure", func(t *testing.T) {
		worker := newTestWorker(&mockContentRepository{err: errors.New("db down")}, &mockSubscriberRepository{}, &mockMailer{})

		assert.Error(t, worker.HandleDigest(context.Background(), newTask(t)))
	})
}
