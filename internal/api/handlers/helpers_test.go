package handlers_test

import (
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"

	"github.com/donaldgifford/wishlist-tracker/internal/auth"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

var testUser = &domain.User{ID: "user-1", Username: "reader"}

// newAuthedAPI returns a test API whose requests all carry testUser, as the
// API key middleware would attach it.
func newAuthedAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	api.UseMiddleware(func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithUser(ctx.Context(), testUser)))
	})
	return api
}

func sampleSnapshot(itemID, title, price string, at time.Time) domain.Snapshot {
	return domain.Snapshot{
		ItemID:     itemID,
		Title:      title,
		Price:      decimal.RequireFromString(price),
		ImageURL:   "https://img.example.com/" + itemID + ".jpg",
		CapturedAt: at,
	}
}
