// Package handlers implements HTTP handlers for the wishlist-tracker API.
// Health checks are plain Echo handlers; everything under /api/v1 is a Huma
// operation and expects an authenticated user in the request context.
package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wishlist-tracker/internal/auth"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// currentUser returns the user the API key middleware attached to ctx.
func currentUser(ctx context.Context) (*domain.User, error) {
	u, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("missing or invalid " + auth.HeaderName + " header")
	}
	return u, nil
}
