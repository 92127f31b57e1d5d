package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "wlt-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "wlt-recording",
					Rules: []Rule{
						{
							Record: "wlt:http_requests:rate5m",
							Expr:   `sum(rate(wlt_http_requests_total[5m]))`,
						},
						{
							Record: "wlt:http_errors:rate5m",
							Expr:   `sum(rate(wlt_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "wlt:fetches:rate5m",
							Expr:   `sum by (result) (rate(wlt_fetches_total[5m]))`,
						},
						{
							Record: "wlt:fetch_failures:rate5m",
							Expr:   `sum(rate(wlt_fetches_total{result!="ok"}[5m]))`,
						},
						{
							Record: "wlt:refresh_items:rate5m",
							Expr:   `sum by (outcome) (rate(wlt_refresh_items_total[5m]))`,
						},
						{
							Record: "wlt:drop_events:rate5m",
							Expr:   `rate(wlt_drop_events_total[5m])`,
						},
					},
				},
			},
		},
	}
}
