// Package metrics exports reconciliation outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snapgc/internal/gc"
)

// Label names.
const (
	LabelSweep   = "sweep"
	LabelOutcome = "outcome"
	LabelStatus  = "status"
)

const namespace = "snapgc"

// Collector implements gc.Metrics on top of a Prometheus registry.
type Collector struct {
	outcomes        *prometheus.CounterVec
	outcomeDuration *prometheus.HistogramVec
	lookupFailures  *prometheus.CounterVec
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	held            prometheus.Gauge
	lastCycle       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewCollector creates the reconciler metrics and registers them with registry.
// If registry is nil, a private registry is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "outcomes_total",
				Help:      "Snapshots processed by a sweep, by outcome",
			},
			[]string{LabelSweep, LabelOutcome},
		),
		outcomeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "snapshot_duration_seconds",
				Help:      "Time spent processing a single snapshot",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{LabelSweep, LabelOutcome},
		),
		lookupFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "lookup_failures_total",
				Help:      "Sweeps abandoned because the candidate query failed",
			},
			[]string{LabelSweep},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "total",
				Help:      "Completed reconciliation cycles, by status",
			},
			[]string{LabelStatus},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "duration_seconds",
				Help:      "Wall time of a reconciliation cycle",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		held: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "held_snapshots",
				Help:      "Snapshots retained by the last secondary sweep because of live dependents",
			},
		),
		lastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "last_finished_timestamp_seconds",
				Help:      "Unix time the last cycle finished",
			},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		c.outcomes,
		c.outcomeDuration,
		c.lookupFailures,
		c.cycles,
		c.cycleDuration,
		c.held,
		c.lastCycle,
	)
	return c
}

// RecordOutcome counts one processed snapshot.
func (c *Collector) RecordOutcome(sweep gc.Sweep, outcome gc.Outcome, elapsed time.Duration) {
	c.outcomes.WithLabelValues(string(sweep), string(outcome)).Inc()
	c.outcomeDuration.WithLabelValues(string(sweep), string(outcome)).Observe(elapsed.Seconds())
}

// RecordLookupFailure counts an abandoned sweep.
func (c *Collector) RecordLookupFailure(sweep gc.Sweep) {
	c.lookupFailures.WithLabelValues(string(sweep)).Inc()
}

// RecordCycle records the summary of a finished cycle.
func (c *Collector) RecordCycle(report *gc.CycleReport) {
	c.cycles.WithLabelValues(report.Status()).Inc()
	c.cycleDuration.Observe(report.Duration().Seconds())
	c.held.Set(float64(report.Secondary.Held))
	c.lastCycle.Set(float64(report.FinishedAt.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Compile-time check that Collector implements gc.Metrics interface
var _ gc.Metrics = (*Collector)(nil)
