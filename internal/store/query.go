package store

import (
	"fmt"
	"strings"
	"time"
)

const maxLimit = 5000

// SnapshotQuery selects a user's snapshots with optional filters. Results
// are always ordered oldest first, then by insertion order. A Limit keeps
// the newest Limit matches.
type SnapshotQuery struct {
	UserID string
	ItemID *string
	Title  *string
	Since  *time.Time
	Until  *time.Time
	Limit  int // 0 means no limit
}

// Dialect abstracts the placeholder and time encoding differences between
// the SQL backends.
type Dialect interface {
	Placeholder(n int) string
	TimeArg(t time.Time) any
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) TimeArg(t time.Time) any  { return t }

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string  { return "?" }
func (sqliteDialect) TimeArg(t time.Time) any { return formatSQLiteTime(t) }

// Postgres and SQLite are the dialects used by the bundled stores.
var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

const (
	snapshotColumns     = `item_id, title, CAST(price AS TEXT), image_url, captured_at`
	baseSnapshotsSelect = `SELECT ` + snapshotColumns + ` FROM snapshots`
	recentSnapshots     = `SELECT id, item_id, title, price, image_url, captured_at FROM snapshots`
)

// ToSQL builds the full SELECT statement and its positional parameters.
func (q *SnapshotQuery) ToSQL(d Dialect) (string, []any) {
	conditions := []string{"user_id = " + d.Placeholder(1)}
	args := []any{q.UserID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, clause+" "+d.Placeholder(len(args)))
	}

	if q.ItemID != nil {
		add("item_id =", *q.ItemID)
	}
	if q.Title != nil {
		add("title =", *q.Title)
	}
	if q.Since != nil {
		add("captured_at >=", d.TimeArg(*q.Since))
	}
	if q.Until != nil {
		add("captured_at <", d.TimeArg(*q.Until))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	if q.Limit <= 0 {
		return baseSnapshotsSelect + where + " ORDER BY captured_at ASC, id ASC", args
	}

	sql := "SELECT " + snapshotColumns + " FROM (" +
		recentSnapshots + where +
		fmt.Sprintf(" ORDER BY captured_at DESC, id DESC LIMIT %d", min(q.Limit, maxLimit)) +
		") recent ORDER BY captured_at ASC, id ASC"

	return sql, args
}
