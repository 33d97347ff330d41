// Package observability holds the Prometheus metrics of the pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "corrosight"

const pipelineSubsystem = "pipeline"

// Metrics groups the pipeline collectors.
type Metrics struct {
	// RunsTotal counts executions by status (success, failure, rejected).
	RunsTotal *prometheus.CounterVec

	// StageDurationSeconds measures each stage of an execution.
	// Labels: stage (load, validate, pairs, chains, integrity)
	StageDurationSeconds *prometheus.HistogramVec

	// Matches is the match count of the current snapshot by pair and label.
	Matches *prometheus.GaugeVec

	// PairFailuresTotal counts run pairs skipped by the stage that failed.
	PairFailuresTotal *prometheus.CounterVec

	// SnapshotGeneration is the generation of the published snapshot.
	SnapshotGeneration prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Passing a fresh registry keeps
// tests isolated from the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "runs_total",
			Help:      "Pipeline executions by final status.",
		}, []string{"status"}),
		StageDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		Matches: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "matches",
			Help:      "Matches in the published snapshot by run pair and confidence label.",
		}, []string{"pair", "label"}),
		PairFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "pair_failures_total",
			Help:      "Run pairs whose artifacts were skipped, by failing stage.",
		}, []string{"stage"}),
		SnapshotGeneration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "snapshot_generation",
			Help:      "Generation of the currently published snapshot.",
		}),
	}
}

// ObserveStage records how long a stage took. A nil receiver is a no-op.
func (m *Metrics) ObserveStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordRun counts one execution outcome.
func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordPairFailure counts a skipped run pair.
func (m *Metrics) RecordPairFailure(stage string) {
	if m == nil {
		return
	}
	m.PairFailuresTotal.WithLabelValues(stage).Inc()
}

// PublishMatches replaces the per-pair match gauges with counts.
func (m *Metrics) PublishMatches(generation uint64, counts map[string]map[string]int) {
	if m == nil {
		return
	}
	m.Matches.Reset()
	for pair, byLabel := range counts {
		for label, n := range byLabel {
			m.Matches.WithLabelValues(pair, label).Set(float64(n))
		}
	}
	m.SnapshotGeneration.Set(float64(generation))
}
