package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatguard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Pipeline metrics
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatguard_messages_processed_total",
			Help: "Messages run through the analysis pipeline",
		},
		[]string{"outcome"}, // "ok", "persist_error"
	)

	MessagesToxic = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatguard_messages_toxic_total",
			Help: "Messages flagged toxic",
		},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatguard_pipeline_duration_seconds",
			Help:    "Analysis pipeline latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	ScorerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatguard_scorer_failures_total",
			Help: "Toxicity scorer calls that failed and were replaced by a zero score",
		},
	)

	AdvisoryFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatguard_advisory_fallbacks_total",
			Help: "Advisory calls that failed and were served by rule-based fallbacks",
		},
		[]string{"operation"}, // "tone", "coaching", "rewrite"
	)

	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatguard_active_connections",
			Help: "Currently registered chat connections",
		},
	)

	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatguard_broadcast_drops_total",
			Help: "Connections removed because broadcast delivery failed",
		},
	)
)
