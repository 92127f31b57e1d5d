package taskq

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_FirstAcquireIsImmediate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(time.Hour, WithGateNowFunc(func() time.Time { return now }))

	got, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, got)
	assert.Equal(t, now.Add(time.Hour), g.NextEligible())
	assert.Equal(t, time.Hour, g.Interval())
}

func TestGate_SequentialGrantsAreSpaced(t *testing.T) {
	t.Parallel()

	const interval = 20 * time.Millisecond
	g := NewGate(interval)

	var grants []time.Time
	for range 4 {
		at, err := g.Acquire(context.Background())
		require.NoError(t, err)
		grants = append(grants, at)
	}

	for i := 1; i < len(grants); i++ {
		assert.GreaterOrEqual(t, grants[i].Sub(grants[i-1]), interval)
	}
}

func TestGate_ConcurrentGrantsAreSpaced(t *testing.T) {
	t.Parallel()

	const interval = 15 * time.Millisecond
	g := NewGate(interval)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for range 8 {
		wg.Go(func() {
			at, err := g.Acquire(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			grants = append(grants, at)
			mu.Unlock()
		})
	}
	wg.Wait()

	require.Len(t, grants, 8)
	slices.SortFunc(grants, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(grants); i++ {
		assert.GreaterOrEqual(t, grants[i].Sub(grants[i-1]), interval)
	}
}

func TestGate_ZeroIntervalAdmitsImmediately(t *testing.T) {
	t.Parallel()

	g := NewGate(0)
	start := time.Now()
	for range 10 {
		_, err := g.Acquire(context.Background())
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestGate_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	g := NewGate(time.Hour)
	_, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "gate wait")

	// A failed wait must not consume the next slot.
	assert.True(t, g.NextEligible().After(time.Now()))
}

func TestGate_DeclinedSlotIsNotConsumed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(time.Hour, WithGateNowFunc(func() time.Time { return now }))

	_, granted, err := g.AcquireIf(context.Background(), func() bool { return false })
	require.NoError(t, err)
	assert.False(t, granted)
	assert.True(t, g.NextEligible().IsZero())

	at, granted, err := g.AcquireIf(context.Background(), func() bool { return true })
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, now, at)
	assert.Equal(t, now.Add(time.Hour), g.NextEligible())
}
