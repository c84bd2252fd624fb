// ============================================================================
// racewalk Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose explorer metrics for Prometheus monitoring.
//
// Metric Categories:
//
//   1. Schedule Counters - cumulative, monotonically increasing:
//      - racewalk_schedules_total{outcome}: every schedule executed (seed +
//        reversals), labeled success/failure
//      - racewalk_successful_reverses_total: race reversals that produced
//        at least one new stack state
//
//   2. Exploration Gauges - instantaneous DFS state:
//      - racewalk_stack_depth: current stack depth
//      - racewalk_eat_pending: total unresolved EAT entries across the stack
//
//   3. Replay Performance (Histogram):
//      - racewalk_replay_duration_seconds: wall time of each C5 replay
//        invocation
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. Default port 9090.
//
// ============================================================================

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for one Explore run. Its
// Inc/Observe methods match internal/explorer.Metrics, so an *Engine built
// with a *Collector records observability data with no adapter.
type Collector struct {
	schedulesSuccess  prometheus.Counter
	schedulesFailure  prometheus.Counter
	successfulReverse prometheus.Counter

	stackDepth prometheus.Gauge
	eatPending prometheus.Gauge

	replayDuration prometheus.Histogram
}

// NewCollector creates a new metrics collector and registers every metric
// against the default registry.
func NewCollector() *Collector {
	c := &Collector{
		schedulesSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "racewalk_schedules_total",
			Help:        "Total number of schedules executed (seed + reversals)",
			ConstLabels: prometheus.Labels{"outcome": "success"},
		}),
		schedulesFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "racewalk_schedules_total",
			Help:        "Total number of schedules executed (seed + reversals)",
			ConstLabels: prometheus.Labels{"outcome": "failure"},
		}),
		successfulReverse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racewalk_successful_reverses_total",
			Help: "Total number of race reversals that produced at least one new stack state",
		}),
		stackDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "racewalk_stack_depth",
			Help: "Current depth-first-search stack depth",
		}),
		eatPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "racewalk_eat_pending",
			Help: "Total unresolved EAT entries across the stack",
		}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "racewalk_replay_duration_seconds",
			Help:    "Wall time of each replay invocation",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(c.schedulesSuccess)
	prometheus.MustRegister(c.schedulesFailure)
	prometheus.MustRegister(c.successfulReverse)
	prometheus.MustRegister(c.stackDepth)
	prometheus.MustRegister(c.eatPending)
	prometheus.MustRegister(c.replayDuration)

	return c
}

// IncScheduled records one successfully-executed schedule (seed or
// reversal). Failed runs are recorded via IncScheduleFailure instead.
func (c *Collector) IncScheduled() {
	c.schedulesSuccess.Inc()
}

// IncScheduleFailure records one schedule whose C5 invocation failed.
func (c *Collector) IncScheduleFailure() {
	c.schedulesFailure.Inc()
}

// IncSuccessfulReverse records one race reversal whose execution produced
// at least one new stack state.
func (c *Collector) IncSuccessfulReverse() {
	c.successfulReverse.Inc()
}

// ObserveStackDepth records the current DFS stack depth.
func (c *Collector) ObserveStackDepth(n int) {
	c.stackDepth.Set(float64(n))
}

// ObserveEATPending records the total count of unresolved EAT entries
// across every stack state.
func (c *Collector) ObserveEATPending(n int) {
	c.eatPending.Set(float64(n))
}

// ObserveReplayDuration records the wall time of one C5 invocation.
func (c *Collector) ObserveReplayDuration(seconds float64) {
	c.replayDuration.Observe(seconds)
}

// StartServer starts the Prometheus metrics HTTP server.
//
// Parameters:
//   - addr: listen address, e.g. ":9090"
//
// Returns:
//   - error: Error on startup failure
func StartServer(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}
