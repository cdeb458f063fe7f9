package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Transport delivers a card to a webhook endpoint. The dispatcher only ever
// talks to this interface, so tests inject deterministic stubs instead of a
// live HTTP client.
type Transport interface {
	Send(ctx context.Context, webhookURL string, card Card) error
}

// WebhookTransport posts cards as JSON to chat-ops webhook URLs. Transient
// failures (network errors, 429, 5xx) are retried with exponential backoff
// within the caller's context deadline.
type WebhookTransport struct {
	client     *http.Client
	maxRetries uint64
}

func NewWebhookTransport(timeout time.Duration) *WebhookTransport {
	return &WebhookTransport{
		client:     &http.Client{Timeout: timeout},
		maxRetries: 2,
	}
}

func (t *WebhookTransport) Send(ctx context.Context, webhookURL string, card Card) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxRetries), ctx)

	return backoff.Retry(func() error {
		return t.post(ctx, webhookURL, payload)
	}, bo)
}

func (t *WebhookTransport) post(ctx context.Context, webhookURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}
	return nil
}
