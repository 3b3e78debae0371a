// Package metrics holds the Prometheus collectors of the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Telegram metrics
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_updates_total",
			Help: "Total Telegram updates received",
		},
		[]string{"type"},
	)

	// Business metrics
	TranscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_transcriptions_total",
			Help: "Total audio files processed",
		},
		[]string{"outcome"}, // "new", "cached", "empty", "too_large", "error"
	)

	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_summaries_total",
			Help: "Total summaries generated",
		},
		[]string{"provider"},
	)

	SummaryCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summaree_summary_cost_usd_total",
			Help: "Accumulated summary cost in USD",
		},
	)

	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_translations_total",
			Help: "Total translation requests",
		},
		[]string{"kind"}, // "summary" or "transcript"
	)

	PaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summaree_payments_total",
			Help: "Total successful payments",
		},
	)

	// Queue metrics
	QueueSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_queue_sends_total",
			Help: "Total queued message delivery attempts",
		},
		[]string{"outcome"}, // "sent", "retry", "failed"
	)

	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_task_runs_total",
			Help: "Total scheduled task runs",
		},
		[]string{"task", "outcome"}, // "ok" or "error"
	)

	// Infrastructure metrics
	AILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summaree_ai_latency_seconds",
			Help:    "Latency of external AI calls",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"}, // "transcribe", "summarize", "translate"
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaree_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveAI records the latency of an AI call started at start.
func ObserveAI(operation string, start time.Time) {
	AILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
