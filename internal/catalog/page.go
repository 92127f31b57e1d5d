package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

const (
	defaultBaseURL        = "https://www.kobo.com/tw/zh/ebook/"
	defaultAcceptLanguage = "zh-TW"
	defaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

	titleSelector = "h1.title.product-field"
	priceSelector = `meta[property="og:price"]`
	imageSelector = `meta[property="og:image"]`
)

// PageClient implements Fetcher by scraping the catalog's public item page.
type PageClient struct {
	baseURL        string
	acceptLanguage string
	userAgent      string
	client         *http.Client
	nowFunc        func() time.Time
}

// PageOption configures the PageClient.
type PageOption func(*PageClient)

// WithBaseURL overrides the item page base URL. The item ID is appended
// verbatim.
func WithBaseURL(u string) PageOption {
	return func(c *PageClient) {
		c.baseURL = u
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) PageOption {
	return func(c *PageClient) {
		c.userAgent = ua
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(lang string) PageOption {
	return func(c *PageClient) {
		c.acceptLanguage = lang
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) PageOption {
	return func(c *PageClient) {
		c.client = hc
	}
}

// WithTimeout sets the per-fetch network timeout on the default client.
func WithTimeout(d time.Duration) PageOption {
	return func(c *PageClient) {
		c.client.Timeout = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) PageOption {
	return func(c *PageClient) {
		c.nowFunc = f
	}
}

// NewPageClient creates a new catalog page client.
func NewPageClient(opts ...PageOption) *PageClient {
	c := &PageClient{
		baseURL:        defaultBaseURL,
		acceptLanguage: defaultAcceptLanguage,
		userAgent:      defaultUserAgent,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ItemURL returns the catalog page URL for itemID.
func (c *PageClient) ItemURL(itemID string) string {
	return c.baseURL + itemID
}

// Fetch implements Fetcher.Fetch.
func (c *PageClient) Fetch(ctx context.Context, itemID string) (*domain.Snapshot, error) {
	ctx, span := otel.Tracer("catalog").Start(ctx, "catalog.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("item_id", itemID))

	start := time.Now()
	snap, err := c.fetch(ctx, itemID)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	metrics.FetchesTotal.WithLabelValues(Reason(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Reason(err))
		return nil, err
	}
	return snap, nil
}

func (c *PageClient) fetch(ctx context.Context, itemID string) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ItemURL(itemID), http.NoBody)
	if err != nil {
		return nil, unreachable(itemID, fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unreachable(itemID, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unreachable(itemID, fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, unreachable(itemID, fmt.Errorf("reading page: %w", err))
	}

	snap, err := parsePage(doc)
	if err != nil {
		return nil, unparseable(itemID, err)
	}

	snap.ItemID = itemID
	snap.CapturedAt = c.nowFunc()
	return snap, nil
}

// parsePage extracts the title, price and image from an item page. All three
// are required.
func parsePage(doc *goquery.Document) (*domain.Snapshot, error) {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if title == "" {
		return nil, errors.New("title not found")
	}

	rawPrice, ok := doc.Find(priceSelector).First().Attr("content")
	if !ok || strings.TrimSpace(rawPrice) == "" {
		return nil, errors.New("price not found")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
	if err != nil {
		return nil, fmt.Errorf("parsing price %q: %w", rawPrice, err)
	}

	image, ok := doc.Find(imageSelector).First().Attr("content")
	if !ok || strings.TrimSpace(image) == "" {
		return nil, errors.New("image not found")
	}

	return &domain.Snapshot{
		Title:    title,
		Price:    price,
		ImageURL: strings.TrimSpace(image),
	}, nil
}
