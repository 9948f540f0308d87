package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookSink forwards bus events to a configured HTTP endpoint. Each
// request is signed with HMAC-SHA256 so the receiver can verify authenticity.
// Delivery follows bus semantics: a failed POST is logged by the bus and not
// retried.
type WebhookSink struct {
	url    string
	secret []byte
	client *http.Client
}

// NewWebhookSink returns a WebhookSink that POSTs events to url and signs
// them with secret. A zero or negative timeout falls back to
// defaultWebhookTimeout.
func NewWebhookSink(url, secret string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSink{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

type webhookBody struct {
	Event       string         `json:"event"`
	Payload     map[string]any `json:"payload"`
	PublishedAt time.Time      `json:"published_at"`
}

// Handle marshals event to JSON, signs the body, and POSTs it to the
// configured URL. The following headers are set on every request:
//
//	Content-Type:        application/json
//	X-Attendapi-Event:   <event.Name>
//	X-Hub-Signature-256: sha256=<hex-encoded HMAC-SHA256>
func (s *WebhookSink) Handle(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(webhookBody{
		Event:       event.Name,
		Payload:     event.Payload,
		PublishedAt: event.PublishedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Attendapi-Event", event.Name)
	req.Header.Set("X-Hub-Signature-256", "sha256="+s.sign(body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *WebhookSink) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
