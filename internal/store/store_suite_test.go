package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wishlist-tracker/internal/store"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// baseTime is truncated to microseconds so it survives a Postgres round trip.
var baseTime = time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)

func testSnapshot(itemID, title, price string, at time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		ItemID:     itemID,
		Title:      title,
		Price:      decimal.RequireFromString(price),
		ImageURL:   "https://cdn.example.com/" + itemID + ".jpg",
		CapturedAt: at,
	}
}

func createUser(t *testing.T, s store.Store, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, APIKey: "key-" + name}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

// runStoreSuite exercises the behaviour every Store implementation shares.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("append and list snapshots", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createUser(t, s, "alice")

		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b2", "Book Two", "300", baseTime.Add(time.Hour))))
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book One", "199.5", baseTime)))

		got, err := s.ListSnapshots(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "b1", got[0].ItemID)
		assert.Equal(t, "Book One", got[0].Title)
		assert.True(t, got[0].Price.Equal(decimal.RequireFromString("199.50")), got[0].Price.String())
		assert.True(t, got[0].CapturedAt.Equal(baseTime))
		assert.Equal(t, "https://cdn.example.com/b1.jpg", got[0].ImageURL)
		assert.Equal(t, "b2", got[1].ItemID)
	})

	t.Run("duplicate snapshot same day same price", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createUser(t, s, "bob")

		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "100", baseTime)))

		err := s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "100.00", baseTime.Add(2*time.Hour)))
		require.ErrorIs(t, err, store.ErrDuplicate)

		// A new price the same day is a new data point.
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "90", baseTime.Add(3*time.Hour))))
		// The old price on a later day is too.
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "100", baseTime.Add(24*time.Hour))))

		got, err := s.ListSnapshots(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("same-day price rebound is recorded", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createUser(t, s, "bea")

		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "10", baseTime)))
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "8", baseTime.Add(time.Hour))))
		// Back to an earlier price the same day: a new data point, not a repeat.
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "10.00", baseTime.Add(2*time.Hour))))

		// Repeating the current price is still rejected.
		err := s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", "10", baseTime.Add(3*time.Hour)))
		require.ErrorIs(t, err, store.ErrDuplicate)

		// Another item at the same price does not count.
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b2", "Other", "10", baseTime.Add(3*time.Hour))))

		itemID := "b1"
		got, err := s.QuerySnapshots(ctx, &store.SnapshotQuery{UserID: u.ID, ItemID: &itemID})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[2].Price.Equal(decimal.NewFromInt(10)))
		assert.True(t, got[2].CapturedAt.Equal(baseTime.Add(2*time.Hour)))
	})

	t.Run("snapshots are scoped per user", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := createUser(t, s, "carol")
		b := createUser(t, s, "dave")

		require.NoError(t, s.AppendSnapshot(ctx, a.ID, testSnapshot("b1", "Book", "100", baseTime)))
		require.NoError(t, s.AppendSnapshot(ctx, b.ID, testSnapshot("b1", "Book", "100", baseTime)))

		got, err := s.ListSnapshots(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = s.ListSnapshots(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("query snapshots", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createUser(t, s, "erin")

		for i, price := range []string{"100", "95", "90"} {
			at := baseTime.Add(time.Duration(i) * 24 * time.Hour)
			require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b1", "Book", price, at)))
		}
		require.NoError(t, s.AppendSnapshot(ctx, u.ID, testSnapshot("b2", "Other", "50", baseTime)))

		itemID := "b1"
		since := baseTime.Add(24 * time.Hour)
		got, err := s.QuerySnapshots(ctx, &store.SnapshotQuery{
			UserID: u.ID,
			ItemID: &itemID,
			Since:  &since,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Price.Equal(decimal.NewFromInt(95)))
		assert.True(t, got[1].Price.Equal(decimal.NewFromInt(90)))

		// A limit keeps the newest points, still oldest first.
		got, err = s.QuerySnapshots(ctx, &store.SnapshotQuery{UserID: u.ID, ItemID: &itemID, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Price.Equal(decimal.NewFromInt(95)))
		assert.True(t, got[1].Price.Equal(decimal.NewFromInt(90)))
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createUser(t, s, "frank")

		found, err := s.LookupUserByAPIKey(ctx, "key-frank")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
		assert.Equal(t, "frank", found.Username)

		_, err = s.LookupUserByAPIKey(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.CreateUser(ctx, &domain.User{Username: "frank", APIKey: "other"})
		require.ErrorIs(t, err, store.ErrDuplicate)

		createUser(t, s, "grace")
		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "frank", users[0].Username)
	})

	t.Run("job runs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.InsertJobRun(ctx, "refresh_wishlists")
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.NoError(t, s.CompleteJobRun(ctx, id, domain.JobStatusSucceeded, "", 3))

		stale, err := s.InsertJobRun(ctx, "refresh_wishlists")
		require.NoError(t, err)
		_, err = s.InsertJobRun(ctx, "recover")
		require.NoError(t, err)

		runs, err := s.ListJobRuns(ctx, "refresh_wishlists", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		var completed *domain.JobRun
		for i := range runs {
			if runs[i].ID == id {
				completed = &runs[i]
			}
		}
		require.NotNil(t, completed)
		assert.Equal(t, domain.JobStatusSucceeded, completed.Status)
		require.NotNil(t, completed.RowsAffected)
		assert.Equal(t, 3, *completed.RowsAffected)
		assert.NotNil(t, completed.CompletedAt)

		latest, err := s.ListLatestJobRuns(ctx)
		require.NoError(t, err)
		assert.Len(t, latest, 2)

		// A negative threshold puts the cutoff in the future, so every
		// running row counts as stale.
		n, err := s.RecoverStaleJobRuns(ctx, -time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		runs, err = s.ListJobRuns(ctx, "refresh_wishlists", 10)
		require.NoError(t, err)
		for _, r := range runs {
			if r.ID == stale {
				assert.Equal(t, domain.JobStatusCrashed, r.Status)
			}
		}
	})

	t.Run("ping and migrate are idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Migrate(ctx))
	})
}
