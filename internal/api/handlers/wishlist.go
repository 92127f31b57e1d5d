package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wishlist-tracker/internal/store"
	"github.com/donaldgifford/wishlist-tracker/pkg/history"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// WishlistProvider defines the store methods required by the wishlist handler.
type WishlistProvider interface {
	ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error)
	QuerySnapshots(ctx context.Context, q *store.SnapshotQuery) ([]domain.Snapshot, error)
}

// WishlistHandler serves the aggregated views of a user's snapshots.
type WishlistHandler struct {
	store WishlistProvider
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(s WishlistProvider) *WishlistHandler {
	return &WishlistHandler{store: s}
}

// WishlistOutput lists the latest price of every tracked title.
type WishlistOutput struct {
	Body []domain.LatestViewRow
}

// List returns one row per tracked title, ordered by title.
func (h *WishlistHandler) List(ctx context.Context, _ *struct{}) (*WishlistOutput, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	snaps, err := h.store.ListSnapshots(ctx, user.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing wishlist failed: " + err.Error())
	}

	view := history.LatestView(snaps)
	rows := make([]domain.LatestViewRow, 0, len(view))
	for _, title := range history.SortedTitles(view) {
		rows = append(rows, view[title])
	}
	return &WishlistOutput{Body: rows}, nil
}

// HistoryInput filters the price history.
type HistoryInput struct {
	ItemID string    `query:"item_id" doc:"Only this catalog item"`
	Title  string    `query:"title" doc:"Only this title"`
	Since  time.Time `query:"since" doc:"Only snapshots captured at or after this time (RFC 3339)"`
	Until  time.Time `query:"until" doc:"Only snapshots captured before this time (RFC 3339)"`
	Limit  int       `query:"limit" minimum:"0" maximum:"5000" doc:"Keep only the newest N snapshots (capped at 5000), 0 for no limit"`
}

// TitleHistory is the price series of a single title.
type TitleHistory struct {
	Title  string              `json:"title"`
	ItemID string              `json:"item_id"`
	Points []domain.PricePoint `json:"points"`
}

// HistoryOutput is the grouped price history of a wishlist.
type HistoryOutput struct {
	Body []TitleHistory
}

// History returns every recorded price per title, oldest first.
func (h *WishlistHandler) History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	q := &store.SnapshotQuery{UserID: user.ID, Limit: input.Limit}
	if input.ItemID != "" {
		q.ItemID = &input.ItemID
	}
	if input.Title != "" {
		q.Title = &input.Title
	}
	if !input.Since.IsZero() {
		q.Since = &input.Since
	}
	if !input.Until.IsZero() {
		q.Until = &input.Until
	}

	snaps, err := h.store.QuerySnapshots(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("querying history failed: " + err.Error())
	}

	series := history.Series(snaps)
	out := make([]TitleHistory, 0, len(series))
	for _, title := range history.SortedTitles(series) {
		s := series[title]
		out = append(out, TitleHistory{Title: title, ItemID: s.ItemID, Points: s.Points})
	}
	return &HistoryOutput{Body: out}, nil
}

// RegisterWishlistRoutes registers wishlist endpoints with the Huma API.
func RegisterWishlistRoutes(api huma.API, h *WishlistHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-wishlist",
		Method:      http.MethodGet,
		Path:        "/api/v1/wishlist",
		Summary:     "Get the wishlist",
		Description: "Returns the most recent price of every tracked title.",
		Tags:        []string{"wishlist"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "get-wishlist-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/wishlist/history",
		Summary:     "Get wishlist price history",
		Description: "Returns the recorded prices of each tracked title, oldest first.",
		Tags:        []string{"wishlist"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.History)
}
