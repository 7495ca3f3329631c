// Package notify delivers end-of-session summaries to an external
// callback URL. Delivery retries transparently on transient failures;
// a missing or unset webhook is a no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/logging"
)

// SessionSummary is the payload posted when a session ends.
type SessionSummary struct {
	SessionID        string    `json:"sessionId"`
	ClientID         string    `json:"clientId"`
	TestID           string    `json:"testId"`
	StartedAt        time.Time `json:"startedAt"`
	EndedAt          time.Time `json:"endedAt"`
	CommandsExecuted int       `json:"commandsExecuted"`
	LastURL          string    `json:"lastUrl,omitempty"`
	ArtifactsDir     string    `json:"artifactsDir,omitempty"`
}

// Webhook posts session summaries with retry. A nil *Webhook is valid
// and does nothing.
type Webhook struct {
	url    string
	client *retryablehttp.Client
	log    *logging.Logger
}

// NewWebhook creates a notifier for the given URL. Returns nil when the
// URL is empty so callers can pass the result around unconditionally.
func NewWebhook(url string, retryMax int, log *logging.Logger) *Webhook {
	if url == "" {
		return nil
	}
	if log == nil {
		log = logging.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	return &Webhook{
		url:    url,
		client: client,
		log:    log.Named("webhook"),
	}
}

// SessionEnded posts the summary. Errors are returned for logging but
// callers treat delivery as best-effort.
func (w *Webhook) SessionEnded(ctx context.Context, summary SessionSummary) error {
	if w == nil {
		return nil
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected: %s", resp.Status)
	}

	w.log.Debug("session summary delivered",
		zap.String("session_id", summary.SessionID),
		zap.Int("status", resp.StatusCode))
	return nil
}
