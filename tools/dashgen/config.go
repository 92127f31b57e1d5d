package main

import (
	"errors"
	"fmt"
)

// Rule output formats.
const (
	RuleFormatOperator = "operator" // PrometheusRule custom resources
	RuleFormatFile     = "file"     // plain rule files
)

// KnownMetrics is the set of metric names exported by wishlist-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"wlt_http_request_duration_seconds": true,
	"wlt_http_requests_total":           true,
	"wlt_http_requests_in_flight":       true,
	"wlt_http_panics_total":             true,

	// Health metrics.
	"wlt_healthz_up": true,
	"wlt_readyz_up":  true,

	// Catalog fetch metrics.
	"wlt_fetch_duration_seconds": true,
	"wlt_fetches_total":          true,

	// Task scheduler metrics.
	"wlt_scheduler_queue_depth":       true,
	"wlt_scheduler_gate_wait_seconds": true,
	"wlt_scheduler_submissions_total": true,
	"wlt_scheduler_canceled_total":    true,

	// Refresh cycle metrics.
	"wlt_refresh_duration_seconds":         true,
	"wlt_refresh_items_total":              true,
	"wlt_drop_events_total":                true,
	"wlt_scheduler_next_refresh_timestamp": true,

	// Notification metrics.
	"wlt_notifications_sent_total":      true,
	"wlt_notification_failures_total":   true,
	"wlt_notification_duration_seconds": true,

	// Auth metrics.
	"wlt_auth_cache_hits_total": true,
	"wlt_auth_lookups_total":    true,

	// Recording rules.
	"wlt:http_requests:rate5m":  true,
	"wlt:http_errors:rate5m":    true,
	"wlt:fetches:rate5m":        true,
	"wlt:fetch_failures:rate5m": true,
	"wlt:refresh_items:rate5m":  true,
	"wlt:drop_events:rate5m":    true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	RuleFormat       string
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
		RuleFormat:       RuleFormatOperator,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	if c.RulesEnabled && c.RuleFormat != RuleFormatOperator && c.RuleFormat != RuleFormatFile {
		return fmt.Errorf("unknown rule format %q (want %s or %s)", c.RuleFormat, RuleFormatOperator, RuleFormatFile)
	}
	return nil
}
