package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

const (
	defaultPoolSize = 10

	pgUniqueViolation = "23505"
)

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// AppendSnapshot inserts a snapshot for the user. It returns ErrDuplicate
// when the item's most recent snapshot already has the same price on the
// same UTC day. Inserts for one user and item are serialized by an advisory
// lock held for the transaction.
func (s *PostgresStore) AppendSnapshot(
	ctx context.Context,
	userID string,
	snap *domain.Snapshot,
) error {
	args := pgx.NamedArgs{
		"user_id":     userID,
		"item_id":     snap.ItemID,
		"title":       snap.Title,
		"price":       snap.Price.String(),
		"image_url":   snap.ImageURL,
		"captured_at": snap.CapturedAt,
		"captured_on": CaptureDay(snap.CapturedAt),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appending snapshot %s: beginning transaction: %w", snap.ItemID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, queryLockSnapshotItem, args); err != nil {
		return fmt.Errorf("appending snapshot %s: locking item: %w", snap.ItemID, err)
	}

	tag, err := tx.Exec(ctx, queryInsertSnapshot, args)
	if err != nil {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, ErrDuplicate)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appending snapshot %s: committing: %w", snap.ItemID, err)
	}
	return nil
}

// ListSnapshots returns every snapshot recorded for the user, oldest first.
func (s *PostgresStore) ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error) {
	return s.QuerySnapshots(ctx, &SnapshotQuery{UserID: userID})
}

// QuerySnapshots returns the user's snapshots matching q, oldest first.
func (s *PostgresStore) QuerySnapshots(
	ctx context.Context,
	q *SnapshotQuery,
) ([]domain.Snapshot, error) {
	query, args := q.ToSQL(Postgres)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var (
			snap  domain.Snapshot
			price string
		)
		if err := rows.Scan(
			&snap.ItemID, &snap.Title, &price, &snap.ImageURL, &snap.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snap.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing snapshot price %q: %w", price, err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// CreateUser inserts a user and fills in its ID and CreatedAt. It returns
// ErrDuplicate when the username or API key is taken.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.pool.QueryRow(ctx, queryInsertUser, u.Username, u.APIKey).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating user %s: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("creating user %s: %w", u.Username, err)
	}
	return nil
}

// LookupUserByAPIKey returns the user owning apiKey, or ErrNotFound.
func (s *PostgresStore) LookupUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, queryGetUserByAPIKey, apiKey).
		Scan(&u.ID, &u.Username, &u.APIKey, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user by api key: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users, oldest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, queryListUsers)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.APIKey, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as 'crashed',
// then deletes all rows older than 30 days. Returns the number of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	now := time.Now()

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns, now.Add(-jobRunRetention)); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
