// Package digest formats and sends the daily opportunity email through
// Resend. Sending is best-effort: missing credentials, an empty digest, or a
// delivery failure all degrade to "not sent" rather than a pipeline error.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/engineroomai/scout/internal/scout"
)

// Recorder logs a digest that actually went out.
type Recorder interface {
	RecordEmail(ctx context.Context, rec scout.EmailRecord) error
}

type Mailer struct {
	client   *resend.Client
	from     string
	to       string
	recorder Recorder
}

// New builds a Mailer. An empty apiKey leaves the client nil, turning every
// send into a logged no-op.
func New(apiKey, from, to string, recorder Recorder) *Mailer {
	m := &Mailer{
		from:     from,
		to:       to,
		recorder: recorder,
	}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}

	return m
}

// SendDigest emails the ranked opportunity list and returns whether the send
// succeeded. The email log row is only written after a verified send.
func (m *Mailer) SendDigest(ctx context.Context, opportunities []scout.Opportunity) bool {
	if m.client == nil {
		slog.Info("email delivery not configured, skipping digest")
		return false
	}
	if len(opportunities) == 0 {
		slog.Info("no opportunities for digest, skipping")
		return false
	}

	subject := fmt.Sprintf("Scout Daily Brief — %s — %d opportunities",
		time.Now().Format("Jan 02"), len(opportunities))
	html, err := buildDigestHTML(opportunities)
	if err != nil {
		slog.Error("error building digest html", "error", err)
		return false
	}

	if _, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: subject,
		Html:    html,
	}); err != nil {
		slog.Error("error sending digest", "error", err)
		return false
	}

	if err := m.recorder.RecordEmail(ctx, scout.EmailRecord{
		OpportunityCount: len(opportunities),
		Subject:          subject,
	}); err != nil {
		slog.Error("error recording sent email", "error", err)
	}

	slog.Info("digest sent", "to", m.to, "count", len(opportunities))
	return true
}
