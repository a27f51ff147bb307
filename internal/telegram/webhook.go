// Package telegram wraps the few Bot API calls the platform issues
// outside a bot runtime: webhook registration for tenant bots.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// WebhookManager registers and removes Telegram webhooks for bot tokens
type WebhookManager struct {
	apiBase   string
	serverURL string
	client    *http.Client
}

// NewWebhookManager creates a manager pointing webhooks at serverURL
func NewWebhookManager(serverURL string) *WebhookManager {
	return &WebhookManager{
		apiBase:   defaultAPIBase,
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetAPIBase overrides the Bot API host, used in tests
func (w *WebhookManager) SetAPIBase(url string) {
	w.apiBase = strings.TrimRight(url, "/")
}

// SetWebhook points the bot's webhook at /webhook/{path} on the server
func (w *WebhookManager) SetWebhook(ctx context.Context, token, path string) error {
	webhook := fmt.Sprintf("%s/webhook/%s", w.serverURL, path)
	params := url.Values{
		"url":                  {webhook},
		"drop_pending_updates": {"true"},
	}
	return w.call(ctx, token, "setWebhook", params)
}

// DeleteWebhook removes the bot's webhook so the bot stops receiving updates
func (w *WebhookManager) DeleteWebhook(ctx context.Context, token string) error {
	return w.call(ctx, token, "deleteWebhook", url.Values{})
}

func (w *WebhookManager) call(ctx context.Context, token, method string, params url.Values) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", w.apiBase, token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !result.OK {
		return fmt.Errorf("%s failed: %s", method, result.Description)
	}
	return nil
}
