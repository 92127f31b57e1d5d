package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // drop of 20% or more
	colorYellow = 0xF1C40F // 10-19%
	colorOrange = 0xE67E22 // under 10%

	// Discord allows max 10 embeds per message.
	discordMaxEmbeds = 10
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	itemURL    func(itemID string) string
}

// NewDiscordNotifier creates a new DiscordNotifier. By default it stays
// under Discord's webhook limit of 5 requests per 2 seconds.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(400*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithRateLimiter replaces the outbound request limiter. A nil limiter
// disables throttling.
func WithRateLimiter(l *rate.Limiter) DiscordOption {
	return func(d *DiscordNotifier) {
		d.limiter = l
	}
}

// WithItemURL sets the function used to link each embed to its catalog page.
func WithItemURL(f func(itemID string) string) DiscordOption {
	return func(d *DiscordNotifier) {
		d.itemURL = f
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

// NotifyDrops sends the user's drops as Discord embeds, ten per message.
func (d *DiscordNotifier) NotifyDrops(
	ctx context.Context,
	user *domain.User,
	events []domain.DropEvent,
) error {
	for start := 0; start < len(events); start += discordMaxEmbeds {
		chunk := events[start:min(start+discordMaxEmbeds, len(events))]

		embeds := make([]discordEmbed, 0, len(chunk))
		for i := range chunk {
			embeds = append(embeds, d.buildEmbed(&chunk[i]))
		}

		payload := discordWebhookPayload{Embeds: embeds}
		if start == 0 {
			payload.Content = fmt.Sprintf("%d price drop(s) on %s's wishlist", len(events), user.Username)
		}

		if err := d.post(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiscordNotifier) buildEmbed(e *domain.DropEvent) discordEmbed {
	pct := dropPercent(e)

	embed := discordEmbed{
		Title: fmt.Sprintf("Price drop: %s", e.Title),
		Color: dropColor(pct),
		Fields: []discordEmbedField{
			{Name: "Now", Value: e.CurrentPrice.StringFixed(2), Inline: true},
			{Name: "Was", Value: e.PreviousPrice.StringFixed(2), Inline: true},
			{
				Name:   "Savings",
				Value:  fmt.Sprintf("%s (%s%%)", e.Savings().StringFixed(2), pct.StringFixed(1)),
				Inline: true,
			},
		},
	}

	if d.itemURL != nil {
		embed.URL = d.itemURL(e.ItemID)
	}
	if e.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: e.ImageURL}
	}

	return embed
}

// dropPercent returns the drop as a percentage of the previous price.
func dropPercent(e *domain.DropEvent) decimal.Decimal {
	if e.PreviousPrice.IsZero() {
		return decimal.Zero
	}
	return e.Savings().Div(e.PreviousPrice).Mul(decimal.NewFromInt(100))
}

func dropColor(pct decimal.Decimal) int {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(20)):
		return colorGreen
	case pct.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return colorYellow
	default:
		return colorOrange
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("discord rate limiter wait: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
