package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// WebhookSender POSTs notifications as JSON to a configured URL.
type WebhookSender struct {
	URL    string
	client *http.Client
}

// NewWebhookSender returns a webhook sender for the given URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:    url,
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (w *WebhookSender) Name() string { return "webhook" }

type webhookPayload struct {
	Event     string `json:"event"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Send delivers the notification payload.
func (w *WebhookSender) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Event:     "voice_channel_error",
		Subject:   subject,
		Message:   body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return util.WrapError("encode webhook payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return util.WrapError("create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return util.WrapError("deliver webhook", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
