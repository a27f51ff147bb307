// Package analytics ships usage events to an external spreadsheet
// webhook. Delivery is best effort and never blocks bot handlers.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event is one analytics record
type Event struct {
	Event      string `json:"event"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Tracker posts events to a spreadsheet webhook
type Tracker struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewTracker creates a tracker. An empty url disables delivery; Track
// becomes a no-op so callers never need to check.
func NewTracker(url string, logger *zap.Logger) *Tracker {
	return &Tracker{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Track sends one event in the background. Failures are logged, never
// returned: losing an analytics row must not affect the user.
func (t *Tracker) Track(event Event) {
	if t.url == "" {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := t.send(ctx, event); err != nil {
			t.logger.Warn("analytics delivery failed",
				zap.String("event", event.Event),
				zap.Error(err))
		}
	}()
}

func (t *Tracker) send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
