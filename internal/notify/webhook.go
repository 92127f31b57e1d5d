package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// WebhookNotifier implements Notifier by POSTing a JSON document to an
// arbitrary URL, for relays such as an email gateway.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	headers map[string]string
	nowFunc func() time.Time
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithWebhookHTTPClient sets a custom HTTP client.
func WithWebhookHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookNotifier) {
		w.client = c
	}
}

// WithWebhookHeader adds a header sent with every request, typically an
// Authorization token.
func WithWebhookHeader(key, value string) WebhookOption {
	return func(w *WebhookNotifier) {
		w.headers[key] = value
	}
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	w := &WebhookNotifier{
		url:     url,
		client:  http.DefaultClient,
		headers: make(map[string]string),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WebhookPayload is the JSON document sent by WebhookNotifier.
type WebhookPayload struct {
	UserID   string             `json:"user_id"`
	Username string             `json:"username"`
	SentAt   time.Time          `json:"sent_at"`
	Drops    []domain.DropEvent `json:"drops"`
}

// NotifyDrops posts all of the user's drops in a single request.
func (w *WebhookNotifier) NotifyDrops(
	ctx context.Context,
	user *domain.User,
	events []domain.DropEvent,
) error {
	body, err := json.Marshal(WebhookPayload{
		UserID:   user.ID,
		Username: user.Username,
		SentAt:   w.nowFunc().UTC(),
		Drops:    events,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
