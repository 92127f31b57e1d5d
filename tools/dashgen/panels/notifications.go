package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// NotificationsRate returns a timeseries panel showing delivered and failed
// drop notifications.
func NotificationsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Notifications / hour").
		Description("Drop notifications delivered and failed per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(rate(`+Sel("wlt_notifications_sent_total")+`[1h])) * 3600`, "sent", "A")).
		WithTarget(PromQuery(`sum(rate(`+Sel("wlt_notification_failures_total")+`[1h])) * 3600`, "failed", "B")).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// NotificationLatency returns a timeseries panel showing the p95 notification
// webhook latency.
func NotificationLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Notification Latency (p95)").
		Description("95th percentile webhook delivery latency").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			Quantile(0.95, "wlt_notification_duration_seconds", "1h"),
			"p95", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// AuthCacheHitRatio returns a stat panel showing the share of API key checks
// answered without a store lookup.
func AuthCacheHitRatio() *stat.PanelBuilder {
	hits := `sum(rate(` + Sel("wlt_auth_cache_hits_total") + `[1h]))`
	lookups := `sum(rate(` + Sel("wlt_auth_lookups_total") + `[1h]))`
	return stat.NewPanelBuilder().
		Title("Auth Cache Hit %").
		Description("API key checks served from the in-process cache").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(hits+` / (`+hits+` + `+lookups+`) * 100`, "", "A")).
		Unit("percent").
		Thresholds(ThresholdsRedGreen(50)).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}
