/*
Package metrics exposes Prometheus gauges and histograms for the job
orchestrator, the same way cuemby/warren's pkg/metrics exposes cluster
gauges: package-level collectors, registered once, updated by a
periodically-running Collector plus direct instrumentation at the call
sites that matter (worker spawn/exit, cache hits).
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_jobs_total",
			Help: "Total number of jobs by kind and status.",
		},
		[]string{"kind", "status"},
	)

	WorkersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_workers_running",
			Help: "Number of compute worker processes currently running.",
		},
	)

	WorkersQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_workers_queued",
			Help: "Number of job submissions waiting on the admission gate.",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_cache_hits_total",
			Help: "Total number of cache Get calls that found a non-expired entry.",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_cache_misses_total",
			Help: "Total number of cache Get calls that found no entry.",
		},
	)

	WorkerRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_worker_run_duration_seconds",
			Help:    "Duration of a compute worker run, by kind and outcome.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"kind", "outcome"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_api_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_api_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers every collector above with reg. Called once at
// startup; a nil reg registers with the default Prometheus registry.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		JobsTotal,
		WorkersRunning,
		WorkersQueued,
		CacheHitsTotal,
		CacheMissesTotal,
		WorkerRunDuration,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Timer is a small helper for timing operations and observing the result
// into a histogram, matching cuemby/warren's pkg/metrics.Timer.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time without recording it.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
