// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Evaluation metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_evaluations_total",
			Help: "Stock evaluations by mode (event, report) and result",
		},
		[]string{"mode", "result"},
	)

	ForecastAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_forecast_alerts_total",
			Help: "Alert entries emitted by batch forecasts",
		},
	)

	DuplicateNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_duplicate_notifications_total",
			Help: "Change notifications skipped because they were already handled",
		},
	)

	// Composer metrics
	ComposerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_composer_fallbacks_total",
			Help: "Compositions that used the fallback template, by kind",
		},
		[]string{"kind"},
	)

	ComposerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_composer_duration_seconds",
			Help:    "Latency of text-generation calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Credential exchange metrics
	TokenExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_token_exchanges_total",
			Help: "Signed-assertion token exchanges by result",
		},
		[]string{"result"},
	)

	TokenCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_token_cache_lookups_total",
			Help: "Access token cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Dispatch metrics
	DispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_dispatch_attempts_total",
			Help: "Push gateway delivery attempts by result",
		},
		[]string{"result"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_dispatch_duration_seconds",
			Help:    "End-to-end duration of a dispatch including retries",
			Buckets: prometheus.DefBuckets,
		},
	)
)
