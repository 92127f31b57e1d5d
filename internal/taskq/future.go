package taskq

import (
	"context"
	"sync"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

type futureState int

const (
	statePending futureState = iota
	stateStarted
	stateCanceled
)

// Future is the eventual result of a submitted fetch.
type Future struct {
	itemID string
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state futureState
	snap  *domain.Snapshot
	err   error
}

func newFuture(itemID string) *Future {
	return &Future{itemID: itemID, done: make(chan struct{})}
}

// ItemID returns the item this future was submitted for.
func (f *Future) ItemID() string {
	return f.itemID
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the fetch completes or ctx is done. Returning early on
// ctx does not stop a fetch that has already started.
func (f *Future) Wait(ctx context.Context) (*domain.Snapshot, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.snap, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel abandons a fetch that has not started yet and reports whether it
// did. A started fetch always runs to completion; Cancel then has no effect
// and its result is simply dropped if nobody waits for it.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	if f.state != statePending {
		f.mu.Unlock()
		return false
	}
	f.state = stateCanceled
	f.mu.Unlock()

	metrics.SchedulerCanceledTotal.Inc()
	f.resolve(nil, ErrCanceled)
	return true
}

func (f *Future) markStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != statePending {
		return false
	}
	f.state = stateStarted
	return true
}

func (f *Future) canceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == stateCanceled
}

func (f *Future) resolve(snap *domain.Snapshot, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.snap, f.err = snap, err
		f.mu.Unlock()
		close(f.done)
	})
}
