package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifcut_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifcut_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_conversions_total",
			Help: "Total number of conversions by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifcut_conversion_duration_seconds",
			Help:    "End-to-end conversion duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160, 300},
		},
		[]string{"source"},
	)

	ConversionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifcut_conversions_in_progress",
			Help: "Number of conversions currently running",
		},
	)

	TierRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_tier_renders_total",
			Help: "Successful renders by encoding tier",
		},
		[]string{"tier"},
	)

	TierFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifcut_tier_fallbacks_total",
			Help: "Optimized encodes that fell back to the baseline encoder",
		},
	)

	ArtifactBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gifcut_artifact_bytes",
			Help:    "Size of produced GIFs in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
		},
	)
)

// Remote cache metrics
var (
	RemoteCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifcut_remote_cache_hits_total",
			Help: "Remote requests served from the download cache",
		},
	)

	RemoteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_remote_fetches_total",
			Help: "Remote downloads by status",
		},
		[]string{"status"},
	)
)

// Retention metrics
var (
	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifcut_sweep_runs_total",
			Help: "Total number of retention sweeps",
		},
	)

	SweepDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_sweep_deleted_total",
			Help: "Entries deleted by retention sweeps",
		},
		[]string{"dir"},
	)

	SweepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifcut_sweep_errors_total",
			Help: "Entries a retention sweep failed to delete",
		},
		[]string{"dir"},
	)
)
