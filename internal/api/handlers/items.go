package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wishlist-tracker/internal/catalog"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// ItemTracker fetches an item immediately and records it for a user.
type ItemTracker interface {
	Track(ctx context.Context, user *domain.User, itemID string) (*domain.Snapshot, error)
}

// ItemsHandler handles adding items to a wishlist.
type ItemsHandler struct {
	tracker ItemTracker
	wait    waitConfig
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(t ItemTracker, opts ...WaitOption) *ItemsHandler {
	return &ItemsHandler{tracker: t, wait: newWaitConfig(opts)}
}

// TrackItemInput is the request body for tracking an item.
type TrackItemInput struct {
	Body struct {
		ItemID string `json:"item_id" minLength:"1" maxLength:"512" pattern:"^[^/?#\\s]+$" example:"the-three-body-problem-1" doc:"Catalog item identifier, the last path segment of the item's page"`
	}
}

// Track statuses.
const (
	TrackStatusTracked = "tracked"
	TrackStatusPending = "pending"
)

// TrackItemBody reports the recorded snapshot, or that the fetch is still
// queued.
type TrackItemBody struct {
	Status   string           `json:"status" enum:"tracked,pending" doc:"tracked once recorded, pending while the fetch is still queued"`
	ItemID   string           `json:"item_id"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty" doc:"The recorded snapshot, absent while pending"`
}

// TrackItemOutput is the response for a tracked item.
type TrackItemOutput struct {
	Status int
	Body   TrackItemBody
}

// Track fetches the item's current price and adds it to the caller's wishlist.
// If the fetch queue is too busy to answer within the wait budget it replies
// 202 and records the item once the fetch runs.
func (h *ItemsHandler) Track(ctx context.Context, input *TrackItemInput) (*TrackItemOutput, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	itemID := input.Body.ItemID
	snap, done, err := runWithin(ctx, h.wait.budget, func(ctx context.Context) (*domain.Snapshot, error) {
		return h.tracker.Track(ctx, user, itemID)
	})
	switch {
	case !done:
		return &TrackItemOutput{
			Status: http.StatusAccepted,
			Body:   TrackItemBody{Status: TrackStatusPending, ItemID: itemID},
		}, nil
	case err == nil:
		return &TrackItemOutput{
			Status: http.StatusCreated,
			Body:   TrackItemBody{Status: TrackStatusTracked, ItemID: itemID, Snapshot: snap},
		}, nil
	case errors.Is(err, store.ErrDuplicate):
		return nil, huma.Error409Conflict("item already tracked at this price today")
	case errors.Is(err, catalog.ErrUnparseable):
		return nil, huma.Error404NotFound("item not found in catalog: " + itemID)
	case errors.Is(err, catalog.ErrUnreachable):
		return nil, huma.Error502BadGateway("catalog unreachable, try again later")
	default:
		return nil, huma.Error500InternalServerError("tracking item failed: " + err.Error())
	}
}

const trackItemDescription = "Fetches the item's current price through the rate-limited queue " +
	"and records it on the caller's wishlist. Answers 202 with status pending when the queue " +
	"cannot finish within the server's wait budget; the item is recorded once its fetch runs."

// RegisterItemRoutes registers item endpoints with the Huma API.
func RegisterItemRoutes(api huma.API, h *ItemsHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "track-item",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Track a catalog item",
		Description:   trackItemDescription,
		Tags:          []string{"wishlist"},
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusBadGateway,
			http.StatusInternalServerError,
		},
	}, h.Track)
}
