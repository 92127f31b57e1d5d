package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// TitleHistory is the recorded price series of one title.
type TitleHistory struct {
	Title  string              `json:"title"`
	ItemID string              `json:"item_id"`
	Points []domain.PricePoint `json:"points"`
}

// HistoryParams filters GetHistory. Zero values are not sent.
type HistoryParams struct {
	ItemID string
	Title  string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// Statuses reported by the server for work that may outlive a request.
const (
	StatusTracked   = "tracked"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRunning   = "running"
)

// RefreshResponse is the outcome of refreshing the caller's wishlist. While
// Status is StatusRunning the refresh continues on the server and Drops is
// empty; drops found later go to the notifiers.
type RefreshResponse struct {
	Status string             `json:"status"`
	Count  int                `json:"count"`
	Drops  []domain.DropEvent `json:"drops"`
}

// TrackResult is the outcome of tracking an item. Snapshot is nil while
// Status is StatusPending.
type TrackResult struct {
	Status   string           `json:"status"`
	ItemID   string           `json:"item_id"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

// TrackItem adds an item to the caller's wishlist, recording its current price.
func (c *Client) TrackItem(ctx context.Context, itemID string) (*TrackResult, error) {
	var res TrackResult
	body := map[string]string{"item_id": itemID}
	if err := c.post(ctx, "/api/v1/items", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetWishlist returns the latest price of every tracked title.
func (c *Client) GetWishlist(ctx context.Context) ([]domain.LatestViewRow, error) {
	var rows []domain.LatestViewRow
	if err := c.get(ctx, "/api/v1/wishlist", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetHistory returns the price history of the caller's wishlist, grouped by title.
func (c *Client) GetHistory(ctx context.Context, p *HistoryParams) ([]TitleHistory, error) {
	q := url.Values{}
	if p != nil {
		if p.ItemID != "" {
			q.Set("item_id", p.ItemID)
		}
		if p.Title != "" {
			q.Set("title", p.Title)
		}
		if !p.Since.IsZero() {
			q.Set("since", p.Since.Format(time.RFC3339))
		}
		if !p.Until.IsZero() {
			q.Set("until", p.Until.Format(time.RFC3339))
		}
		if p.Limit > 0 {
			q.Set("limit", strconv.Itoa(p.Limit))
		}
	}

	path := "/api/v1/wishlist/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []TitleHistory
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh re-fetches the caller's wishlist and returns any price drops.
func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.post(ctx, "/api/v1/wishlist/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
