package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/internal/tasks"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// ContentRepository defines the interface for reading recent catalog additions
type ContentRepository interface {
	// GetCreatedSince retrieves items of every type created at or after since
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetCreatedSince(ctx context.Context, since time.Time) ([]models.ContentItem, error)
}

// SubscriberRepository defines the interface for reading newsletter subscribers
type SubscriberRepository interface {
	// GetAllEmails retrieves the address of every subscriber
	GetAllEmails(ctx context.Context) ([]string, error)
}

// Mailer delivers a single HTML mail
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(
	`<p>Thanks for subscribing to What If Music?</p>` +
		`<p>Every week we send you the newest beats, remixes and cover art. Browse the full catalog at <a href="{{.SiteURL}}">{{.SiteURL}}</a>.</p>`,
))

var digestTemplate = template.Must(template.New("digest").Parse(
	`<p>New on What If Music? since {{.Since}}:</p><ul>` +
		`{{range .Items}}<li><a href="{{$.SiteURL}}/{{.Link}}">{{.Title}}</a> by {{.Creator}} ({{.Kind}})</li>{{end}}` +
		`</ul>`,
))

type digestLine struct {
	Title   string
	Creator string
	Kind    string
	Link    string
}

// Worker handles newsletter task processing
type Worker struct {
	logger         *zap.Logger
	contentRepo    ContentRepository
	subscriberRepo SubscriberRepository
	mailer         Mailer
	siteURL        string
}

// NewWorker creates a new worker instance
func NewWorker(
	logger *zap.Logger,
	contentRepo ContentRepository,
	subscriberRepo SubscriberRepository,
	mailer Mailer,
	siteURL string,
) *Worker {
	return &Worker{
		logger:         logger,
		contentRepo:    contentRepo,
		subscriberRepo: subscriberRepo,
		mailer:         mailer,
		siteURL:        siteURL,
	}
}

// HandleWelcome sends the welcome mail of a new subscriber
func (w *Worker) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseWelcomePayload(t)
	if err != nil {
		// a malformed payload never becomes valid
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, map[string]string{"SiteURL": w.siteURL}); err != nil {
		return fmt.Errorf("failed to render welcome mail: %w", err)
	}

	if err := w.mailer.Send(payload.Email, "Welcome to What If Music?", body.String()); err != nil {
		return err
	}

	w.logger.Info("Welcome mail sent", zap.String("email", payload.Email))
	return nil
}

// HandleDigest mails the catalog additions since the payload time to every subscriber.
// A digest without new items is skipped. The task only fails when no mail could be delivered.
func (w *Worker) HandleDigest(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseDigestPayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	items, err := w.contentRepo.GetCreatedSince(ctx, payload.Since)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		w.logger.Info("Digest skipped, no new items", zap.Time("since", payload.Since))
		return nil
	}

	emails, err := w.subscriberRepo.GetAllEmails(ctx)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return nil
	}

	body, err := w.renderDigest(payload.Since, items)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%d new releases on What If Music?", len(items))
	failed := 0
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mailer.Send(email, subject, body); err != nil {
			failed++
			w.logger.Warn("Failed to send digest mail", zap.String("email", email), zap.Error(err))
		}
	}

	if failed == len(emails) {
		return fmt.Errorf("failed to send digest to any of %d subscribers", failed)
	}

	w.logger.Info("Digest sent",
		zap.Int("items", len(items)),
		zap.Int("sent", len(emails)-failed),
		zap.Int("failed", failed),
	)
	return nil
}

func (w *Worker) renderDigest(since time.Time, items []models.ContentItem) (string, error) {
	lines := make([]digestLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, digestLine{
			Title:   item.Title,
			Creator: item.Creator,
			Kind:    digestKind(item.Type),
			Link:    item.Type.Collection() + "/" + item.ID,
		})
	}

	var body bytes.Buffer
	err := digestTemplate.Execute(&body, map[string]any{
		"Since":   since.Format("January 2, 2006"),
		"Items":   lines,
		"SiteURL": w.siteURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render digest mail: %w", err)
	}
	return body.String(), nil
}

func digestKind(t models.ContentType) string {
	switch t {
	case models.ContentTypeBeat:
		return "beat"
	case models.ContentTypeRemix:
		return "remix"
	default:
		return "cover art"
	}
}

// smtpMailer sends mails using gopkg.in/mail.v2
type smtpMailer struct {
	dialer *mail.Dialer
	from   string
}

func newSMTPMailer(host string, port int, username, password, from string) *smtpMailer {
	return &smtpMailer{
		dialer: mail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send sends an email using gopkg.in/mail.v2
func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
