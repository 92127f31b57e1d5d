package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// FetchRate returns a timeseries panel showing catalog fetches per minute by
// result.
func FetchRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetches / min").
		Description("Catalog page fetches per minute by result (ok, unreachable, unparseable, error)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`wlt:fetches:rate5m * 60`, "{{result}}", "A")).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FetchLatency returns a timeseries panel showing p50 and p95 catalog fetch
// durations.
func FetchLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Latency").
		Description("Catalog page fetch duration percentiles").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			Quantile(0.50, "wlt_fetch_duration_seconds", "5m"),
			"p50", "A",
		)).
		WithTarget(PromQuery(
			Quantile(0.95, "wlt_fetch_duration_seconds", "5m"),
			"p95", "B",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GateWait returns a timeseries panel showing how long fetches wait on the
// global start gate. Sustained waits near the queue length times the gate
// interval mean the queue is saturated.
func GateWait() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Gate Wait (p95)").
		Description("95th percentile time a fetch waited for its start slot").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			Quantile(0.95, "wlt_scheduler_gate_wait_seconds", "5m"),
			"p95", "A",
		)).
		WithTarget(PromQuery(
			PerMinute("wlt_scheduler_canceled_total", "5m"),
			"canceled/min", "B",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
