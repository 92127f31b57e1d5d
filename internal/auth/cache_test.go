package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	storeMocks "github.com/donaldgifford/wishlist-tracker/internal/store/mocks"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCache_ValidKeyIsLookedUpOnce(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "good-key").
		Return(&domain.User{ID: "u1", Username: "alice", APIKey: "good-key"}, nil).
		Once()

	c := NewCache(ms, WithLogger(quietLogger()))
	ctx := context.Background()

	for range 5 {
		assert.True(t, c.IsValid(ctx, "good-key"))
	}

	u, err := c.Authenticate(ctx, "good-key")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 1, c.Len())
}

func TestCache_UnknownKeyAlwaysConsultsStore(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "unknown").
		Return(nil, store.ErrNotFound).
		Times(3)

	c := NewCache(ms, WithLogger(quietLogger()))
	for range 3 {
		assert.False(t, c.IsValid(context.Background(), "unknown"))
	}
	assert.Zero(t, c.Len())
}

func TestCache_KeyCreatedAfterFailedCheck(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "late").
		Return(nil, store.ErrNotFound).Once()
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "late").
		Return(&domain.User{ID: "u2", Username: "bob"}, nil).Once()

	c := NewCache(ms, WithLogger(quietLogger()))
	ctx := context.Background()

	assert.False(t, c.IsValid(ctx, "late"))
	assert.True(t, c.IsValid(ctx, "late"))
	assert.True(t, c.IsValid(ctx, "late"))
}

func TestCache_EmptyKeyNeverLookedUp(t *testing.T) {
	t.Parallel()

	c := NewCache(storeMocks.NewMockStore(t), WithLogger(quietLogger()))

	_, err := c.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidKey)
	assert.False(t, c.IsValid(context.Background(), ""))
}

func TestCache_StoreErrorIsNotCached(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "k").Return(nil, dbErr).Once()
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "k").
		Return(&domain.User{ID: "u3", Username: "carol"}, nil).Once()

	c := NewCache(ms, WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := c.Authenticate(ctx, "k")
	require.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrInvalidKey)
	assert.Zero(t, c.Len())

	u, err := c.Authenticate(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
}

func TestCache_RevocationNotObserved(t *testing.T) {
	t.Parallel()

	// The store forgets the key after the first lookup; the cache does not.
	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "revoked").
		Return(&domain.User{ID: "u4", Username: "dave"}, nil).Once()

	c := NewCache(ms, WithLogger(quietLogger()))
	ctx := context.Background()
	require.True(t, c.IsValid(ctx, "revoked"))
	assert.True(t, c.IsValid(ctx, "revoked"))
}

func TestCache_ConcurrentChecks(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "shared").
		Return(&domain.User{ID: "u5", Username: "erin"}, nil).Maybe()

	c := NewCache(ms, WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			assert.True(t, c.IsValid(context.Background(), "shared"))
		})
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestCache_CountsCacheHits(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().LookupUserByAPIKey(mock.Anything, "metered").
		Return(&domain.User{ID: "u6", Username: "frank"}, nil).Once()

	c := NewCache(ms, WithLogger(quietLogger()))
	ctx := context.Background()
	require.True(t, c.IsValid(ctx, "metered"))

	before := ptestutil.ToFloat64(metrics.AuthCacheHitsTotal)
	require.True(t, c.IsValid(ctx, "metered"))
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.AuthCacheHitsTotal)-before, float64(1))
}

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 100 {
		k, err := GenerateAPIKey()
		require.NoError(t, err)
		assert.Len(t, k, 22)
		assert.NotContains(t, k, "=")
		assert.NotContains(t, k, "+")
		assert.NotContains(t, k, "/")
		seen[k] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	u := &domain.User{ID: "u7", Username: "grace"}
	got, ok := UserFromContext(WithUser(context.Background(), u))
	require.True(t, ok)
	assert.Same(t, u, got)
}
