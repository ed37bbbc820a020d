// Package audit provides a best-effort audit line sink. Delivery
// failures are swallowed: audit logging is never on the critical path.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/timedealhq/creditbot/pkg/logger"
)

// Sink records a single audit line per rank change or bulk sweep.
type Sink interface {
	Record(ctx context.Context, line string)
}

// NopSink discards all audit lines.
type NopSink struct{}

// Record does nothing.
func (NopSink) Record(context.Context, string) {}

// WebhookSink posts audit lines to a configured webhook URL.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewWebhookSink creates a webhook-backed sink. When url is empty a
// NopSink is returned instead.
func NewWebhookSink(url string, log *logger.Logger) Sink {
	if url == "" {
		return NopSink{}
	}
	return &WebhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log.With("component", "audit"),
	}
}

type webhookPayload struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Record posts the line to the webhook. All failures are ignored beyond
// a debug log entry.
func (s *WebhookSink) Record(ctx context.Context, line string) {
	payload, err := json.Marshal(webhookPayload{
		Text:      line,
		Source:    "creditbot",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("audit delivery failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug("audit delivery rejected", "status", resp.StatusCode)
	}
}
