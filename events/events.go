// Package events announces completed update runs on NATS and Slack.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// DefaultSubject is the subject run summaries are published to.
const DefaultSubject = "evt.pricebook.run.completed.v1"

// RunSummary is the payload of a run completed event.
type RunSummary struct {
	RunID       string         `json:"run_id"`
	Date        string         `json:"date"`
	Instruments int            `json:"instruments"`
	Active      int            `json:"active"`
	Skipped     int            `json:"skipped"`
	Priced      int            `json:"priced"`
	BySource    map[string]int `json:"by_source"`
	Missing     int            `json:"missing"`
	Stale       int            `json:"stale"`
	Suppressed  int            `json:"suppressed"`
	Written     bool           `json:"written"`
	DurationMS  int64          `json:"duration_ms"`
}

// Summarize flattens a report.
func Summarize(r *pricebook.Report) RunSummary {
	by := make(map[string]int, len(r.BySource))
	for s, n := range r.BySource {
		by[string(s)] = n
	}
	return RunSummary{
		RunID:       r.RunID,
		Date:        r.Date.String(),
		Instruments: r.Instruments,
		Active:      r.Active,
		Skipped:     r.Skipped,
		Priced:      r.Priced,
		BySource:    by,
		Missing:     len(r.Missing),
		Stale:       len(r.Stale),
		Suppressed:  r.Suppressed,
		Written:     r.Written,
		DurationMS:  r.Duration.Milliseconds(),
	}
}

// Envelope wraps every published event.
type Envelope struct {
	ID        uuid.UUID  `json:"id"`
	EventType string     `json:"event_type"`
	Version   string     `json:"version"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
	Payload   RunSummary `json:"payload"`
}

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Connect opens a NATS connection named after the service.
func Connect(url, service string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(service))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSNotifier publishes run summaries. It implements pricebook.Notifier.
type NATSNotifier struct {
	pub     Publisher
	subject string
	source  string
}

var _ pricebook.Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier returns a notifier publishing on subject (DefaultSubject when empty).
func NewNATSNotifier(pub Publisher, subject, source string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject, source: source}
}

func (n *NATSNotifier) Notify(_ context.Context, r *pricebook.Report) error {
	env := Envelope{
		ID:        uuid.New(),
		EventType: "pricebook.run.completed",
		Version:   "1.0.0",
		Source:    n.source,
		Timestamp: time.Now().UTC(),
		Payload:   Summarize(r),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cannot encode run summary: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("cannot publish on %s: %w", n.subject, err)
	}
	logger.L().Debug("events.published", zap.String("subject", n.subject), zap.String("run_id", r.RunID))
	return nil
}

// SlackNotifier posts a one-line summary to an incoming webhook.
type SlackNotifier struct {
	URL string
}

var _ pricebook.Notifier = (*SlackNotifier)(nil)

func (s *SlackNotifier) Notify(ctx context.Context, r *pricebook.Report) error {
	msg := &slack.WebhookMessage{Text: SlackText(r)}
	if err := slack.PostWebhookContext(ctx, s.URL, msg); err != nil {
		return fmt.Errorf("cannot post to Slack: %w", err)
	}
	return nil
}

// SlackText is the message posted for a run.
func SlackText(r *pricebook.Report) string {
	text := fmt.Sprintf("pricebook %s: %d priced, %d missing, %d stale, %d suppressed",
		r.Date, r.Priced, len(r.Missing), len(r.Stale), r.Suppressed)
	if !r.Written {
		text += " (nothing written)"
	}
	return text
}
