// Package auth gates API access by static API key. A process-wide cache
// remembers keys already proven valid so that repeat requests skip the
// credential store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "API-Key"

// apiKeyBytes is the amount of randomness in a generated key.
const apiKeyBytes = 16

// ErrInvalidKey is returned for an empty or unknown API key.
var ErrInvalidKey = errors.New("invalid api key")

// CredentialStore looks up the owner of an API key. It returns
// store.ErrNotFound when no user holds the key.
type CredentialStore interface {
	LookupUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
}

// Cache is a positive-only cache of valid API keys in front of a
// CredentialStore. Entries never expire, so a key revoked in the store stays
// valid here until the process restarts. Unknown keys are never cached and
// always consult the store.
type Cache struct {
	store CredentialStore
	log   *slog.Logger

	mu    sync.RWMutex
	users map[string]domain.User
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

// NewCache creates an empty Cache backed by s.
func NewCache(s CredentialStore, opts ...Option) *Cache {
	c := &Cache{
		store: s,
		log:   slog.Default(),
		users: make(map[string]domain.User),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate returns the user owning key. It returns ErrInvalidKey for an
// empty or unknown key, and a wrapped store error if the lookup failed.
func (c *Cache) Authenticate(ctx context.Context, key string) (*domain.User, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	c.mu.RLock()
	u, ok := c.users[key]
	c.mu.RUnlock()
	if ok {
		metrics.AuthCacheHitsTotal.Inc()
		return &u, nil
	}

	found, err := c.store.LookupUserByAPIKey(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.AuthLookupsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidKey
	case err != nil:
		metrics.AuthLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("looking up api key: %w", err)
	case found == nil:
		metrics.AuthLookupsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidKey
	}
	metrics.AuthLookupsTotal.WithLabelValues("valid").Inc()

	c.mu.Lock()
	c.users[key] = *found
	c.mu.Unlock()

	c.log.Debug("api key cached", "user", found.Username)
	return found, nil
}

// IsValid reports whether key belongs to a user. Store failures count as
// invalid.
func (c *Cache) IsValid(ctx context.Context, key string) bool {
	_, err := c.Authenticate(ctx, key)
	if err != nil && !errors.Is(err, ErrInvalidKey) {
		c.log.Warn("api key check failed", "error", err)
	}
	return err == nil
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// GenerateAPIKey returns a new random URL-safe API key.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the authenticated user stored by WithUser.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(*domain.User)
	return u, ok && u != nil
}
