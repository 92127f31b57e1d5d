package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
	"github.com/donaldgifford/wishlist-tracker/internal/store"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// RefreshJobName is the job_runs name of the periodic wishlist refresh.
const RefreshJobName = "wishlist_refresh"

// staleJobAge is how long a job may stay "running" before startup marks it
// crashed.
const staleJobAge = 2 * time.Hour

// Scheduler runs the periodic refresh of every user's wishlist and records
// each run in the job_runs table.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	store  store.Store
	log    *slog.Logger

	refreshEntryID cron.EntryID
	refreshTimeout time.Duration
}

// NewScheduler creates a new Scheduler that refreshes all wishlists every
// refreshInterval. Each run is bounded by the same interval so a slow cycle
// never overlaps the next one.
func NewScheduler(
	eng *Engine,
	s store.Store,
	refreshInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	if refreshInterval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", refreshInterval)
	}

	sched := &Scheduler{
		cron:           cron.New(),
		engine:         eng,
		store:          s,
		log:            log,
		refreshTimeout: refreshInterval,
	}

	id, err := sched.cron.AddFunc("@every "+refreshInterval.String(), sched.runRefresh)
	if err != nil {
		return nil, fmt.Errorf("registering refresh job: %w", err)
	}
	sched.refreshEntryID = id

	return sched, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// JobNames lists the jobs registered with the scheduler.
func (s *Scheduler) JobNames() []string {
	return []string{RefreshJobName}
}

// NextRun reports when the named job is next due. It returns false for
// unknown jobs and before Start.
func (s *Scheduler) NextRun(jobName string) (time.Time, bool) {
	if jobName != RefreshJobName {
		return time.Time{}, false
	}
	next := s.cron.Entry(s.refreshEntryID).Next
	return next, !next.IsZero()
}

// SyncNextRunTimestamps publishes the next refresh time as a gauge.
func (s *Scheduler) SyncNextRunTimestamps() {
	e := s.cron.Entry(s.refreshEntryID)
	if e.Next.IsZero() {
		return
	}
	metrics.SchedulerNextRefreshTimestamp.Set(float64(e.Next.Unix()))
}

// RecoverStaleJobRuns marks runs left "running" by a previous process as
// crashed. It is called once at startup.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, staleJobAge)
	if err != nil {
		s.log.Error("recovering stale job runs", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("marked stale job runs as crashed", "count", n)
	}
}

// RunNow executes a refresh outside the cron schedule, with the same job
// bookkeeping.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	var drops int
	err := s.runJob(ctx, RefreshJobName, s.refreshTimeout, func(ctx context.Context) (int, error) {
		n, err := s.engine.RefreshAll(ctx)
		drops = n
		return n, err
	})
	return drops, err
}

func (s *Scheduler) runRefresh() {
	s.log.Info("scheduled refresh starting")
	drops, err := s.RunNow(context.Background())
	if err != nil {
		s.log.Error("scheduled refresh failed", "error", err)
	} else {
		s.log.Info("scheduled refresh complete", "drops", drops)
	}
	s.SyncNextRunTimestamps()
}

// runJob wraps fn with job_runs bookkeeping. Failing to record the run does
// not prevent the job from running.
func (s *Scheduler) runJob(
	ctx context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) (int, error),
) error {
	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		s.log.Error("recording job start", "job", name, "error", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, jobErr := fn(jobCtx)

	if runID == "" {
		return jobErr
	}

	status, errText := domain.JobStatusSucceeded, ""
	if jobErr != nil {
		status, errText = domain.JobStatusFailed, jobErr.Error()
	}
	// The job context may have expired; bookkeeping uses the parent.
	if err := s.store.CompleteJobRun(ctx, runID, status, errText, rows); err != nil {
		s.log.Error("recording job completion", "job", name, "run_id", runID, "error", err)
	}

	return jobErr
}
