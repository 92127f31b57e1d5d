package taskq

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Gate spaces fetch starts at least interval apart, process-wide. It is a
// single-slot ticket guarding a monotonic next-eligible time: whoever holds
// the ticket waits until the next eligible time, records its start, and
// pushes the next eligible time forward by interval.
type Gate struct {
	interval time.Duration
	ticket   chan struct{}
	nowFunc  func() time.Time

	mu   sync.Mutex
	next time.Time
}

// GateOption configures the Gate.
type GateOption func(*Gate)

// WithGateNowFunc overrides the time function for testing.
func WithGateNowFunc(f func() time.Time) GateOption {
	return func(g *Gate) {
		g.nowFunc = f
	}
}

// NewGate creates a gate that admits one start per interval. A zero interval
// admits every caller immediately, one at a time.
func NewGate(interval time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		interval: interval,
		ticket:   make(chan struct{}, 1),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire blocks until the caller may start a fetch, then returns the start
// time it was granted. Consecutive grants are at least Interval apart.
func (g *Gate) Acquire(ctx context.Context) (time.Time, error) {
	at, _, err := g.AcquireIf(ctx, nil)
	return at, err
}

// AcquireIf is Acquire with a last-moment check: once the slot is due, claim
// is called while the gate is held and the slot is granted only if it
// returns true. A declined slot is not consumed, so the next caller may
// start immediately. A nil claim always accepts.
func (g *Gate) AcquireIf(ctx context.Context, claim func() bool) (time.Time, bool, error) {
	select {
	case g.ticket <- struct{}{}:
	case <-ctx.Done():
		return time.Time{}, false, fmt.Errorf("gate wait: %w", ctx.Err())
	}
	defer func() { <-g.ticket }()

	for {
		now := g.nowFunc()
		next := g.NextEligible()
		if !now.Before(next) {
			if claim != nil && !claim() {
				return time.Time{}, false, nil
			}
			g.mu.Lock()
			g.next = now.Add(g.interval)
			g.mu.Unlock()
			return now, true, nil
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Time{}, false, fmt.Errorf("gate wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// NextEligible returns the earliest time the next start may be granted.
func (g *Gate) NextEligible() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

// Interval returns the configured minimum spacing between starts.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
