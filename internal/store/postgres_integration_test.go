//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/wishlist-tracker/internal/store"
)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("wlt_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, s.Migrate(ctx))

	return s
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) store.Store {
		return setupPostgres(t)
	})
}

func TestPostgresStore_PriceScale(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	u := createUser(t, s, "scale")

	require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "250", baseTime)))

	// 250 and 250.00 are the same price once stored as NUMERIC(12,2).
	err := s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "250.00", baseTime.Add(time.Minute)))
	require.ErrorIs(t, err, store.ErrDuplicate)

	got, err := s.ListSnapshots(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "250", got[0].Price.String())
}

func TestPostgresStore_ConcurrentAppendsDedup(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	u := createUser(t, s, "racer")

	var (
		wg         sync.WaitGroup
		duplicates atomic.Int32
	)
	for range 10 {
		wg.Go(func() {
			err := s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "100", baseTime))
			if err != nil {
				assert.ErrorIs(t, err, store.ErrDuplicate)
				duplicates.Add(1)
			}
		})
	}
	wg.Wait()

	got, err := s.ListSnapshots(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(9), duplicates.Load())
}
