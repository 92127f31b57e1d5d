package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// wishlist-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "wlt-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "wlt-alerts",
					Rules: []Rule{
						{
							Alert: "WltDown",
							Expr:  `absent(up{job="wishlist-tracker"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Wishlist Tracker is down",
								"description": "The wishlist-tracker job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "WltReadinessDown",
							Expr:  `wlt_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Wishlist Tracker readiness check is failing",
								"description": "The readiness check has reported the store unreachable for more than 2 minutes.",
							},
						},
						{
							Alert: "WltHighErrorRate",
							Expr:  `wlt:http_errors:rate5m / wlt:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on Wishlist Tracker",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "WltCatalogFetchFailures",
							Expr:  `wlt:fetch_failures:rate5m / sum(wlt:fetches:rate5m) > 0.25`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Catalog fetches are failing",
								"description": "More than 25% of catalog page fetches have failed for 15 minutes. The catalog may be down or its page layout changed.",
							},
						},
						{
							Alert: "WltFetchQueueBacklog",
							Expr:  `wlt_scheduler_queue_depth > 400`,
							For:   "30m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Fetch queue is not draining",
								"description": "More than 400 fetch jobs have been waiting on the rate-limit gate for 30 minutes.",
							},
						},
						{
							Alert: "WltRefreshOverdue",
							Expr:  `time() - wlt_scheduler_next_refresh_timestamp > 3600`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Scheduled refresh is overdue",
								"description": "The next wishlist refresh was due more than an hour ago and the scheduler has not advanced.",
							},
						},
						{
							Alert: "WltNotificationFailures",
							Expr:  `increase(wlt_notification_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more price drop notifications (Discord or webhook) have failed to send.",
							},
						},
						{
							Alert: "WltHandlerPanics",
							Expr:  `increase(wlt_http_panics_total[10m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "HTTP handler panicked",
								"description": "A request handler panicked and was recovered in the last 10 minutes.",
							},
						},
					},
				},
			},
		},
	}
}
