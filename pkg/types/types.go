// Package domain defines the core business types for the wishlist price tracker.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one immutable, timestamped price reading for a catalog item.
// Snapshots are append-only; the engine never mutates one after creation.
type Snapshot struct {
	ItemID     string          `json:"item_id"     db:"item_id"`
	Title      string          `json:"title"       db:"title"`
	Price      decimal.Decimal `json:"price"       db:"price"`
	ImageURL   string          `json:"image_url"   db:"image_url"`
	CapturedAt time.Time       `json:"captured_at" db:"captured_at"`
}

// LatestViewRow holds the most recent snapshot data for a single title.
type LatestViewRow struct {
	Title            string          `json:"title"`
	ItemID           string          `json:"item_id"`
	LatestPrice      decimal.Decimal `json:"latest_price"`
	LatestCapturedAt time.Time       `json:"latest_captured_at"`
	ImageURL         string          `json:"image_url"`
}

// ComparisonPair is the two most recent snapshots recorded for a title.
type ComparisonPair struct {
	Current  Snapshot `json:"current"`
	Previous Snapshot `json:"previous"`
}

// Dropped reports whether the current price is strictly below the previous one.
func (p ComparisonPair) Dropped() bool {
	return p.Current.Price.LessThan(p.Previous.Price)
}

// DropEvent records that a title's current price fell below its immediately
// preceding recorded price. Drop events are transient and never persisted.
type DropEvent struct {
	UserID        string          `json:"user_id"`
	Title         string          `json:"title"`
	ItemID        string          `json:"item_id"`
	ImageURL      string          `json:"image_url,omitempty"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
}

// Savings returns the absolute amount the price fell by.
func (e DropEvent) Savings() decimal.Decimal {
	return e.PreviousPrice.Sub(e.CurrentPrice)
}

// PricePoint is one (time, price) observation in a price series.
type PricePoint struct {
	CapturedAt time.Time       `json:"captured_at"`
	Price      decimal.Decimal `json:"price"`
}

// PriceSeries is the full price history for one title, oldest first.
type PriceSeries struct {
	ItemID string       `json:"item_id"`
	Points []PricePoint `json:"points"`
}

// User is a credential store record. API keys gate access to the HTTP API.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Username  string    `json:"username"   db:"username"`
	APIKey    string    `json:"-"          db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

// JobSummary pairs a scheduled job with its most recent run and its next
// scheduled start. Either side may be missing: a job that has never run has
// no LastRun, and a job name only known from history has no NextRunAt.
type JobSummary struct {
	JobName   string     `json:"job_name"`
	LastRun   *JobRun    `json:"last_run,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// Job run status values.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusCrashed   = "crashed"
)
