// Package store defines the datastore abstraction for wishlist-tracker.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

var (
	// ErrDuplicate is returned when an insert collides with an existing row.
	// For snapshots this means the user's most recent snapshot of the item
	// already has the same price on the same UTC day.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
)

// Store defines all data access operations for wishlist-tracker.
type Store interface {
	// Snapshots
	AppendSnapshot(ctx context.Context, userID string, s *domain.Snapshot) error
	ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error)
	QuerySnapshots(ctx context.Context, q *SnapshotQuery) ([]domain.Snapshot, error)

	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	LookupUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}

// CaptureDay returns the UTC calendar day of t, which together with the
// user, item and price forms a snapshot's uniqueness key.
func CaptureDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// jobRunRetention is how long finished job_runs rows are kept.
const jobRunRetention = 30 * 24 * time.Hour
