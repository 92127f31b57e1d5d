package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // bundles the SQLite build
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

// sqliteTimeFormat is fixed width so that stored timestamps sort lexically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// DefaultSQLitePath is used when no database path is configured.
const DefaultSQLitePath = "wishlist-tracker.db"

// SQLiteStore implements Store on a single SQLite file via database/sql.
// It suits single-node deployments.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One writer at a time; also keeps a :memory: database on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return RunSQLiteMigrations(ctx, s.db)
}

// AppendSnapshot inserts a snapshot for the user, returning ErrDuplicate
// when the item's most recent snapshot already has the same price on the
// same UTC day. SQLite serializes writers, so the check and the insert are
// one statement.
func (s *SQLiteStore) AppendSnapshot(
	ctx context.Context,
	userID string,
	snap *domain.Snapshot,
) error {
	price := snap.Price.StringFixed(2)
	day := CaptureDay(snap.CapturedAt).Format(time.DateOnly)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			user_id, item_id, title, price, image_url, captured_at, captured_on
		)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM (
				SELECT price, captured_on FROM snapshots
				WHERE user_id = ? AND item_id = ?
				ORDER BY captured_at DESC, id DESC
				LIMIT 1
			) AS latest
			WHERE latest.price = ? AND latest.captured_on = ?
		)`,
		userID,
		snap.ItemID,
		snap.Title,
		price,
		snap.ImageURL,
		formatSQLiteTime(snap.CapturedAt),
		day,
		userID,
		snap.ItemID,
		price,
		day,
	)
	if err != nil {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, err)
	}
	if n == 0 {
		return fmt.Errorf("appending snapshot %s: %w", snap.ItemID, ErrDuplicate)
	}
	return nil
}

// ListSnapshots returns every snapshot recorded for the user, oldest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error) {
	return s.QuerySnapshots(ctx, &SnapshotQuery{UserID: userID})
}

// QuerySnapshots returns the user's snapshots matching q, oldest first.
func (s *SQLiteStore) QuerySnapshots(
	ctx context.Context,
	q *SnapshotQuery,
) ([]domain.Snapshot, error) {
	query, args := q.ToSQL(SQLite)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var (
			snap              domain.Snapshot
			price, capturedAt string
		)
		if err := rows.Scan(
			&snap.ItemID, &snap.Title, &price, &snap.ImageURL, &capturedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snap.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing snapshot price %q: %w", price, err)
		}
		if snap.CapturedAt, err = parseSQLiteTime(capturedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// CreateUser inserts a user and fills in its ID and CreatedAt.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *domain.User) error {
	id := uuid.NewString()
	created := s.nowFunc().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, api_key, created_at) VALUES (?, ?, ?, ?)",
		id, u.Username, u.APIKey, formatSQLiteTime(created),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return fmt.Errorf("creating user %s: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("creating user %s: %w", u.Username, err)
	}

	u.ID = id
	u.CreatedAt = created
	return nil
}

// LookupUserByAPIKey returns the user owning apiKey, or ErrNotFound.
func (s *SQLiteStore) LookupUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, api_key, created_at FROM users WHERE api_key = ?",
		apiKey,
	)
	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user by api key: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, oldest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, api_key, created_at FROM users ORDER BY created_at, username",
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// InsertJobRun records the start of a scheduled job and returns its ID.
func (s *SQLiteStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO job_runs (id, job_name, started_at, status) VALUES (?, ?, ?, ?)",
		id, jobName, formatSQLiteTime(s.nowFunc()), domain.JobStatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *SQLiteStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_runs SET
			completed_at  = ?,
			status        = ?,
			error_text    = ?,
			rows_affected = ?
		WHERE id = ?`,
		formatSQLiteTime(s.nowFunc()), status, errText, rowsAffected, id,
	)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

const sqliteJobRunColumns = `id, job_name, started_at, completed_at, status,
	COALESCE(error_text, ''), rows_affected`

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *SQLiteStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteJobRunColumns+
			" FROM job_runs WHERE job_name = ? ORDER BY started_at DESC LIMIT ?",
		jobName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanSQLiteJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *SQLiteStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteJobRunColumns+`
		FROM job_runs AS r
		WHERE r.started_at = (
			SELECT MAX(started_at) FROM job_runs WHERE job_name = r.job_name
		)
		ORDER BY job_name`)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanSQLiteJobRuns(rows)
}

// RecoverStaleJobRuns marks old 'running' rows as 'crashed' and prunes rows
// past retention. Returns the number of rows marked as crashed.
func (s *SQLiteStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	now := s.nowFunc()

	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs SET status = ?, completed_at = ?
		WHERE status = ? AND started_at < ?`,
		domain.JobStatusCrashed,
		formatSQLiteTime(now),
		domain.JobStatusRunning,
		formatSQLiteTime(now.Add(-olderThan)),
	)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM job_runs WHERE started_at < ?",
		formatSQLiteTime(now.Add(-jobRunRetention)),
	); err != nil {
		return int(affected), fmt.Errorf("deleting old job runs: %w", err)
	}

	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*domain.User, error) {
	var (
		u       domain.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.APIKey, &created); err != nil {
		return nil, err
	}
	t, err := parseSQLiteTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func scanSQLiteJobRuns(rows *sql.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var (
			r         domain.JobRun
			started   string
			completed sql.NullString
			affected  sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &r.JobName, &started, &completed,
			&r.Status, &r.ErrorText, &affected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}

		var err error
		if r.StartedAt, err = parseSQLiteTime(started); err != nil {
			return nil, err
		}
		if completed.Valid {
			t, err := parseSQLiteTime(completed.String)
			if err != nil {
				return nil, err
			}
			r.CompletedAt = &t
		}
		if affected.Valid {
			n := int(affected.Int64)
			r.RowsAffected = &n
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func isSQLiteUnique(err error) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode() == sqlite3.CONSTRAINT_UNIQUE
}
