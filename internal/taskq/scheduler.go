// Package taskq is the rate-limited fetch queue. Every catalog fetch in the
// process goes through one Scheduler so that fetch starts are served in
// submission order and spaced by a single global Gate.
package taskq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/donaldgifford/wishlist-tracker/internal/catalog"
	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

const (
	// DefaultMinInterval is the minimum spacing between fetch starts.
	DefaultMinInterval = 5 * time.Second
	defaultWorkers     = 4
)

var (
	// ErrCanceled is returned for a job canceled before it started.
	ErrCanceled = errors.New("fetch canceled before start")

	// ErrStopped is returned for jobs still queued when the scheduler stops,
	// and for submissions made after it stopped.
	ErrStopped = errors.New("scheduler stopped")
)

type job struct {
	itemID     string
	eligibleAt time.Time
	future     *Future
}

// Scheduler is a FIFO fetch queue drained by one dispatcher goroutine. The
// dispatcher waits for each job's initial delay, a free worker slot, and the
// Gate, then runs the fetch on a worker. Fetches are never retried.
type Scheduler struct {
	fetcher      catalog.Fetcher
	gate         *Gate
	log          *slog.Logger
	workers      int64
	defaultDelay time.Duration
	fetchTimeout time.Duration
	onStart      func(itemID string, at time.Time)

	sem      *semaphore.Weighted
	inflight sync.WaitGroup

	mu      sync.Mutex
	queue   []*job
	wake    chan struct{}
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithGate injects the global start gate. All schedulers sharing a catalog
// should share one gate.
func WithGate(g *Gate) Option {
	return func(s *Scheduler) {
		s.gate = g
	}
}

// WithWorkers sets how many fetches may be in flight at once.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = int64(n)
		}
	}
}

// WithDefaultDelay sets the initial delay applied to submissions that do not
// specify their own.
func WithDefaultDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.defaultDelay = d
	}
}

// WithFetchTimeout bounds each fetch. Zero leaves it to the fetcher's own
// network timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.fetchTimeout = d
	}
}

// WithStartHook registers a callback invoked with the granted start time of
// every fetch, just before the fetch runs.
func WithStartHook(f func(itemID string, at time.Time)) Option {
	return func(s *Scheduler) {
		s.onStart = f
	}
}

// New creates a Scheduler. Call Start before expecting jobs to run.
func New(f catalog.Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher: f,
		log:     slog.Default(),
		workers: defaultWorkers,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gate == nil {
		s.gate = NewGate(DefaultMinInterval)
	}
	s.sem = semaphore.NewWeighted(s.workers)
	return s
}

type submitConfig struct {
	delay time.Duration
}

// SubmitOption configures a single submission.
type SubmitOption func(*submitConfig)

// WithDelay sets the delay before the job becomes eligible to run. It adds
// to, and does not replace, the gate spacing.
func WithDelay(d time.Duration) SubmitOption {
	return func(c *submitConfig) {
		c.delay = d
	}
}

// Submit enqueues a fetch for itemID and returns its future immediately.
func (s *Scheduler) Submit(itemID string, opts ...SubmitOption) *Future {
	cfg := submitConfig{delay: s.defaultDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := newFuture(itemID)
	j := &job{itemID: itemID, eligibleAt: time.Now().Add(cfg.delay), future: f}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		f.resolve(nil, ErrStopped)
		return f
	}
	s.queue = append(s.queue, j)
	metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	s.mu.Unlock()

	metrics.SchedulerSubmissionsTotal.Inc()
	s.signal()
	return f
}

// SubmitAndWait submits a fetch and blocks until it completes. If ctx ends
// first the submission is abandoned and ctx's error returned.
func (s *Scheduler) SubmitAndWait(
	ctx context.Context,
	itemID string,
	opts ...SubmitOption,
) (*domain.Snapshot, error) {
	f := s.Submit(itemID, opts...)
	snap, err := f.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		f.Cancel()
		return nil, fmt.Errorf("waiting for %s: %w", itemID, ctx.Err())
	}
	return snap, err
}

// Pending returns the number of jobs waiting to start.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Start launches the dispatcher. It is a no-op if already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.log.Info("task scheduler started",
		"min_interval", s.gate.Interval(),
		"workers", s.workers,
	)
	go s.run(runCtx)
}

// Stop halts the dispatcher, fails every queued job with ErrStopped, and
// waits for in-flight fetches to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	running := s.running
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.log.Info("task scheduler stopping")

	if running {
		cancel()
		<-done
	}
	s.failQueued()
	s.inflight.Wait()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		j, ok := s.pop(ctx)
		if !ok {
			return
		}
		if j.future.canceled() {
			continue
		}
		if !s.dispatch(ctx, j) {
			j.future.resolve(nil, ErrStopped)
			return
		}
	}
}

// pop blocks until a job is queued or ctx ends.
func (s *Scheduler) pop(ctx context.Context) (*job, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			j := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
			s.mu.Unlock()
			return j, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// dispatch waits for the job's turn and launches it. It returns false only
// when ctx ended before the job could start.
func (s *Scheduler) dispatch(ctx context.Context, j *job) bool {
	if wait := time.Until(j.eligibleAt); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if j.future.canceled() {
			return true
		}
	}

	// Cancel cuts the wait for a worker slot or the gate short.
	waitCtx, stopWait := context.WithCancel(ctx)
	defer stopWait()
	go func() {
		select {
		case <-j.future.Done():
			stopWait()
		case <-waitCtx.Done():
		}
	}()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		return ctx.Err() == nil
	}

	waitStart := time.Now()
	startedAt, started, err := s.gate.AcquireIf(waitCtx, j.future.markStarted)
	if err != nil || !started {
		s.sem.Release(1)
		// Only the scheduler's own context ending stops the dispatcher.
		return ctx.Err() == nil
	}
	metrics.SchedulerGateWait.Observe(time.Since(waitStart).Seconds())

	if s.onStart != nil {
		s.onStart(j.itemID, startedAt)
	}
	s.log.Debug("fetch started", "item_id", j.itemID, "started_at", startedAt)

	// The fetch outlives Stop and abandoned callers.
	fetchCtx := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.sem.Release(1)

		fctx := fetchCtx
		if s.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fetchCtx, s.fetchTimeout)
			defer cancel()
		}

		snap, err := s.fetcher.Fetch(fctx, j.itemID)
		if err != nil {
			s.log.Warn("fetch failed", "item_id", j.itemID, "error", err)
		}
		j.future.resolve(snap, err)
	}()

	return true
}

func (s *Scheduler) failQueued() {
	s.mu.Lock()
	queued := s.queue
	s.queue = nil
	metrics.SchedulerQueueDepth.Set(0)
	s.mu.Unlock()

	for _, j := range queued {
		j.future.resolve(nil, ErrStopped)
	}
}
