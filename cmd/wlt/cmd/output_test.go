package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "short", in: "Dune", maxLen: 10, want: "Dune"},
		{name: "exact", in: "Dune", maxLen: 4, want: "Dune"},
		{name: "long", in: "Children of Dune", maxLen: 10, want: "Childre..."},
		{name: "multibyte", in: "三體：地球往事三部曲之一", maxLen: 6, want: "三體：..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truncate(tt.in, tt.maxLen))
		})
	}
}

func TestPrintWishlistTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := printWishlistTable(&buf, []domain.LatestViewRow{
		{Title: "Dune", ItemID: "dune-1", LatestPrice: decimal.RequireFromString("299.5"), LatestCapturedAt: time.Now()},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "dune-1")
	assert.Contains(t, lines[1], "299.50")
}

func TestPrintHistoryTable_TitleOnFirstRowOnly(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := printHistoryTable(&buf, []apiclient.TitleHistory{{
		Title:  "Dune",
		ItemID: "dune-1",
		Points: []domain.PricePoint{
			{CapturedAt: day, Price: decimal.NewFromInt(320)},
			{CapturedAt: day.AddDate(0, 0, 1), Price: decimal.NewFromInt(280)},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), "Dune"))
	assert.Contains(t, buf.String(), "320.00")
	assert.Contains(t, buf.String(), "280.00")
}

func TestPrintDropsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := printDropsTable(&buf, []domain.DropEvent{{
		Title:         "Dune",
		ItemID:        "dune-1",
		CurrentPrice:  decimal.NewFromInt(280),
		PreviousPrice: decimal.NewFromInt(320),
	}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "40.00")
}

func TestPrintJobRunsTable(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)
	rows := 7

	var buf bytes.Buffer
	err := printJobRunsTable(&buf, []domain.JobRun{
		{JobName: "wishlist_refresh", Status: "succeeded", StartedAt: started, CompletedAt: &completed, RowsAffected: &rows},
		{JobName: "wishlist_refresh", Status: "running", StartedAt: started},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "7")
	assert.Contains(t, lines[2], "running")
	assert.Contains(t, lines[2], "-")
}

func TestPrintJobsTable(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	next := started.Add(24 * time.Hour)

	var buf bytes.Buffer
	err := printJobsTable(&buf, []domain.JobSummary{
		{JobName: "nightly_digest"},
		{
			JobName:   "wishlist_refresh",
			LastRun:   &domain.JobRun{JobName: "wishlist_refresh", Status: "failed", StartedAt: started},
			NextRunAt: &next,
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NEXT RUN")
	assert.Contains(t, lines[1], "never run")
	assert.Contains(t, lines[2], "failed")
	assert.Contains(t, lines[2], next.Local().Format(timeLayout))
}
