// Package metrics holds the Prometheus collectors for adstudio. All metric
// names are prefixed with "adstudio_".
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adstudio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adstudio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adstudio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Overlay pipeline metrics
var (
	OverlayJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adstudio_overlay_jobs_total",
			Help: "Overlay jobs by outcome and error code",
		},
		[]string{"outcome", "code"},
	)

	OverlayStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adstudio_overlay_stage_duration_seconds",
			Help:    "Time spent in each overlay pipeline state",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"state"},
	)

	OverlayInputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adstudio_overlay_input_bytes",
			Help:    "Size of acquired input videos",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 9),
		},
	)

	OverlayCleanupWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adstudio_overlay_cleanup_warnings_total",
			Help: "Temporary files that could not be removed",
		},
	)

	FontResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adstudio_font_resolutions_total",
			Help: "Font lookups by result (path, default)",
		},
		[]string{"result"},
	)
)

// Worker metrics
var (
	WorkerJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adstudio_worker_jobs_in_flight",
			Help: "Number of queued overlay jobs currently being processed",
		},
	)

	QueueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adstudio_queue_operations_total",
			Help: "Redis queue operations by kind and status",
		},
		[]string{"op", "status"},
	)
)

// ObserveStage records how long a pipeline state took.
func ObserveStage(state string, started time.Time) {
	OverlayStageDuration.WithLabelValues(state).Observe(time.Since(started).Seconds())
}

// RecordJob counts a finished overlay job. code is empty on success.
func RecordJob(outcome, code string) {
	OverlayJobsTotal.WithLabelValues(outcome, code).Inc()
}
