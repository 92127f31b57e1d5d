package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// MemoryStore implements Store in process memory. Data is lost on restart;
// it backs local development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	nowFunc   func() time.Time
	snapshots map[string][]domain.Snapshot // by user ID, insertion order
	users     []domain.User
	jobRuns   []domain.JobRun
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nowFunc:   time.Now,
		snapshots: make(map[string][]domain.Snapshot),
	}
}

// Ping always succeeds.
func (*MemoryStore) Ping(context.Context) error { return nil }

// Migrate is a no-op.
func (*MemoryStore) Migrate(context.Context) error { return nil }

// AppendSnapshot records a snapshot, returning ErrDuplicate when the item's
// most recent snapshot already has the same price on the same UTC day.
func (m *MemoryStore) AppendSnapshot(_ context.Context, userID string, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if latest, ok := m.latest(userID, snap.ItemID); ok &&
		latest.Price.Equal(snap.Price) &&
		CaptureDay(latest.CapturedAt).Equal(CaptureDay(snap.CapturedAt)) {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, ErrDuplicate)
	}
	m.snapshots[userID] = append(m.snapshots[userID], *snap)
	return nil
}

// latest returns the user's newest snapshot of itemID. Among equal capture
// times the last inserted wins. Callers hold m.mu.
func (m *MemoryStore) latest(userID, itemID string) (domain.Snapshot, bool) {
	var (
		out   domain.Snapshot
		found bool
	)
	for _, s := range m.snapshots[userID] {
		if s.ItemID != itemID {
			continue
		}
		if !found || !s.CapturedAt.Before(out.CapturedAt) {
			out, found = s, true
		}
	}
	return out, found
}

// ListSnapshots returns every snapshot recorded for the user, oldest first.
func (m *MemoryStore) ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error) {
	return m.QuerySnapshots(ctx, &SnapshotQuery{UserID: userID})
}

// QuerySnapshots returns the user's snapshots matching q, oldest first. A
// limit keeps the newest matches.
func (m *MemoryStore) QuerySnapshots(_ context.Context, q *SnapshotQuery) ([]domain.Snapshot, error) {
	m.mu.RLock()
	all := m.snapshots[q.UserID]
	out := make([]domain.Snapshot, 0, len(all))
	for _, s := range all {
		if q.matches(&s) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.Snapshot) int {
		return a.CapturedAt.Compare(b.CapturedAt)
	})

	if n := min(q.Limit, maxLimit); q.Limit > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (q *SnapshotQuery) matches(s *domain.Snapshot) bool {
	switch {
	case q.ItemID != nil && s.ItemID != *q.ItemID:
		return false
	case q.Title != nil && s.Title != *q.Title:
		return false
	case q.Since != nil && s.CapturedAt.Before(*q.Since):
		return false
	case q.Until != nil && !s.CapturedAt.Before(*q.Until):
		return false
	}
	return true
}

// CreateUser stores a user and fills in its ID and CreatedAt.
func (m *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.users {
		if m.users[i].Username == u.Username || m.users[i].APIKey == u.APIKey {
			return fmt.Errorf("creating user %s: %w", u.Username, ErrDuplicate)
		}
	}

	u.ID = uuid.NewString()
	u.CreatedAt = m.nowFunc()
	m.users = append(m.users, *u)
	return nil
}

// LookupUserByAPIKey returns the user owning apiKey, or ErrNotFound.
func (m *MemoryStore) LookupUserByAPIKey(_ context.Context, apiKey string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.users {
		if m.users[i].APIKey == apiKey {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns all users in creation order.
func (m *MemoryStore) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.users), nil
}

// InsertJobRun records the start of a scheduled job and returns its ID.
func (m *MemoryStore) InsertJobRun(_ context.Context, jobName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.jobRuns = append(m.jobRuns, domain.JobRun{
		ID:        id,
		JobName:   jobName,
		StartedAt: m.nowFunc(),
		Status:    domain.JobStatusRunning,
	})
	return id, nil
}

// CompleteJobRun marks a job run as finished.
func (m *MemoryStore) CompleteJobRun(
	_ context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.jobRuns {
		if m.jobRuns[i].ID != id {
			continue
		}
		now := m.nowFunc()
		r := &m.jobRuns[i]
		r.CompletedAt = &now
		r.Status = status
		r.ErrorText = errText
		r.RowsAffected = &rowsAffected
		return nil
	}
	return fmt.Errorf("completing job run %s: %w", id, ErrNotFound)
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (m *MemoryStore) ListJobRuns(_ context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []domain.JobRun
	for i := len(m.jobRuns) - 1; i >= 0; i-- {
		if m.jobRuns[i].JobName == jobName {
			runs = append(runs, m.jobRuns[i])
		}
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ListLatestJobRuns returns the most recent run for each job name, by name.
func (m *MemoryStore) ListLatestJobRuns(context.Context) ([]domain.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]domain.JobRun)
	for _, r := range m.jobRuns {
		if cur, ok := latest[r.JobName]; !ok || !r.StartedAt.Before(cur.StartedAt) {
			latest[r.JobName] = r
		}
	}

	runs := make([]domain.JobRun, 0, len(latest))
	for _, r := range latest {
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b domain.JobRun) int {
		return cmp.Compare(a.JobName, b.JobName)
	})
	return runs, nil
}

// RecoverStaleJobRuns marks old running rows as crashed and prunes rows past
// retention.
func (m *MemoryStore) RecoverStaleJobRuns(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	staleBefore := now.Add(-olderThan)
	pruneBefore := now.Add(-jobRunRetention)

	var crashed int
	kept := m.jobRuns[:0]
	for _, r := range m.jobRuns {
		if r.StartedAt.Before(pruneBefore) {
			continue
		}
		if r.Status == domain.JobStatusRunning && r.StartedAt.Before(staleBefore) {
			r.Status = domain.JobStatusCrashed
			r.CompletedAt = &now
			crashed++
		}
		kept = append(kept, r)
	}
	m.jobRuns = kept
	return crashed, nil
}
