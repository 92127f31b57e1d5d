package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestSnapshotQuery_ToSQL(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		query     SnapshotQuery
		dialect   Dialect
		wantHas   []string
		wantNotIn []string
		wantArgs  []any
	}{
		{
			name:    "user only",
			query:   SnapshotQuery{UserID: "u1"},
			dialect: Postgres,
			wantHas: []string{
				"FROM snapshots",
				"WHERE user_id = $1",
				"ORDER BY captured_at ASC, id ASC",
			},
			wantNotIn: []string{"LIMIT", "AND"},
			wantArgs:  []any{"u1"},
		},
		{
			name:     "item filter",
			query:    SnapshotQuery{UserID: "u1", ItemID: ptr("book-1")},
			dialect:  Postgres,
			wantHas:  []string{"WHERE user_id = $1 AND item_id = $2"},
			wantArgs: []any{"u1", "book-1"},
		},
		{
			name: "all filters postgres",
			query: SnapshotQuery{
				UserID: "u1",
				ItemID: ptr("book-1"),
				Title:  ptr("A Title"),
				Since:  &since,
				Until:  ptr(since.Add(time.Hour)),
				Limit:  10,
			},
			dialect: Postgres,
			wantHas: []string{
				"item_id = $2",
				"title = $3",
				"captured_at >= $4",
				"captured_at < $5",
				"ORDER BY captured_at DESC, id DESC LIMIT 10) recent",
				"ORDER BY captured_at ASC, id ASC",
			},
			wantArgs: []any{"u1", "book-1", "A Title", since, since.Add(time.Hour)},
		},
		{
			name:      "sqlite placeholders and time text",
			query:     SnapshotQuery{UserID: "u1", Since: &since},
			dialect:   SQLite,
			wantHas:   []string{"WHERE user_id = ? AND captured_at >= ?"},
			wantNotIn: []string{"$1"},
			wantArgs:  []any{"u1", "2025-01-02T03:04:05.000000000Z"},
		},
		{
			name:     "limit is capped",
			query:    SnapshotQuery{UserID: "u1", Limit: 1_000_000},
			dialect:  Postgres,
			wantHas:  []string{"LIMIT 5000"},
			wantArgs: []any{"u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sql, args := tt.query.ToSQL(tt.dialect)
			for _, s := range tt.wantHas {
				assert.Contains(t, sql, s)
			}
			for _, s := range tt.wantNotIn {
				assert.NotContains(t, sql, s)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCaptureDay(t *testing.T) {
	t.Parallel()

	taipei := time.FixedZone("CST", 8*60*60)
	got := CaptureDay(time.Date(2025, 6, 1, 2, 30, 0, 0, taipei))
	assert.Equal(t, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), got)
}
