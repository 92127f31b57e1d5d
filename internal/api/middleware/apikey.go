package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wishlist-tracker/internal/auth"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// Authenticator resolves an API key to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*domain.User, error)
}

// APIKey returns Huma middleware that requires a valid API-Key header on
// every operation registered on api. The resolved user is attached to the
// operation's context; see auth.UserFromContext.
func APIKey(api huma.API, a Authenticator, log *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		user, err := a.Authenticate(ctx.Context(), ctx.Header(auth.HeaderName))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidKey) {
				_ = huma.WriteErr(api, ctx, http.StatusUnauthorized,
					"missing or invalid "+auth.HeaderName+" header")
				return
			}
			log.Error("authenticating request",
				"path", ctx.URL().Path,
				"request_id", RequestIDFromContext(ctx.Context()),
				"error", err,
			)
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "authentication unavailable")
			return
		}

		next(huma.WithContext(ctx, auth.WithUser(ctx.Context(), user)))
	}
}
