package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/synthflow/landing-platform/pkg/logging"
)

const sinkTimeout = 5 * time.Second

// UmamiSink reports events to a self-hosted Umami instance through its
// /api/send endpoint.
type UmamiSink struct {
	host      string
	websiteID string
	client    *http.Client
}

// NewUmamiSink creates an Umami sink. Returns nil when host or website ID
// is unset so callers can append it conditionally.
func NewUmamiSink(host, websiteID string) *UmamiSink {
	if host == "" || websiteID == "" {
		return nil
	}
	return &UmamiSink{
		host:      host,
		websiteID: websiteID,
		client:    &http.Client{Timeout: sinkTimeout},
	}
}

// Name implements Sink.
func (s *UmamiSink) Name() string { return "umami" }

type umamiPayload struct {
	Website string         `json:"website"`
	Name    string         `json:"name"`
	URL     string         `json:"url,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type umamiRequest struct {
	Type    string       `json:"type"`
	Payload umamiPayload `json:"payload"`
}

// Deliver posts the event to Umami.
func (s *UmamiSink) Deliver(ctx context.Context, ev Event) error {
	landing, _ := ev.Fields["landing_page"].(string)
	body, err := json.Marshal(umamiRequest{
		Type: "event",
		Payload: umamiPayload{
			Website: s.websiteID,
			Name:    ev.Name,
			URL:     landing,
			Data:    ev.Fields,
		},
	})
	if err != nil {
		return fmt.Errorf("analytics: marshal umami payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/api/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: build umami request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Umami rejects requests without a user agent.
	req.Header.Set("User-Agent", "synthflow-landing/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: umami send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics: umami returned status %d", resp.StatusCode)
	}
	return nil
}

// WebhookSink posts every event as JSON to a configured URL. Used for
// destinations without a server-side API of their own.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink, or nil when no URL is configured.
func NewWebhookSink(url string) *WebhookSink {
	if url == "" {
		return nil
	}
	return &WebhookSink{url: url, client: &http.Client{Timeout: sinkTimeout}}
}

// Name implements Sink.
func (s *WebhookSink) Name() string { return "webhook" }

// Deliver posts {event, data} to the webhook URL.
func (s *WebhookSink) Deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(map[string]any{
		"event": ev.Name,
		"data":  ev.Fields,
	})
	if err != nil {
		return fmt.Errorf("analytics: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: webhook send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes events to the structured log. Always safe to configure.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Deliver logs the event.
func (s *LogSink) Deliver(ctx context.Context, ev Event) error {
	s.logger.Info("analytics event", "event", ev.Name, "fields", ev.Fields)
	return nil
}

var (
	_ Sink = (*UmamiSink)(nil)
	_ Sink = (*WebhookSink)(nil)
	_ Sink = (*LogSink)(nil)
)
