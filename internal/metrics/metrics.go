// Package metrics exposes Prometheus instrumentation for scenario runs,
// analyses and graph size.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Scenario Metrics
	ScenarioRunsTotal          *prometheus.CounterVec
	ScenarioDuration           *prometheus.HistogramVec
	ScenarioAffectedComponents *prometheus.HistogramVec
	ScenarioResilienceChange   *prometheus.HistogramVec

	// Analysis Metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec

	// Graph Metrics
	GraphNodesTotal         *prometheus.GaugeVec
	GraphRelationshipsTotal prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.ScenarioRunsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophet_scenario_runs_total",
			Help: "Total number of scenario simulations",
		},
		[]string{"scenario_type", "outcome"}, // ok, not_found
	)

	r.ScenarioDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prophet_scenario_duration_seconds",
			Help:    "Duration of scenario simulations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"scenario_type"},
	)

	r.ScenarioAffectedComponents = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prophet_scenario_affected_components",
			Help:    "Number of components affected per scenario",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"scenario_type"},
	)

	r.ScenarioResilienceChange = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prophet_scenario_resilience_change",
			Help:    "Change in resilience score caused by a scenario",
			Buckets: []float64{-30, -15, -7, -3, -1, 0, 1},
		},
		[]string{"scenario_type"},
	)

	r.AnalysesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophet_analyses_total",
			Help: "Total number of analyses run",
		},
		[]string{"analysis"},
	)

	r.AnalysisDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prophet_analysis_duration_seconds",
			Help:    "Duration of analyses in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"analysis"},
	)

	r.GraphNodesTotal = promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prophet_graph_nodes_total",
			Help: "Number of nodes in the loaded graph by kind",
		},
		[]string{"kind"},
	)

	r.GraphRelationshipsTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "prophet_graph_relationships_total",
			Help: "Number of relationships in the loaded graph",
		},
	)

	return r
}

// RecordScenario records a completed scenario simulation.
func (r *Registry) RecordScenario(scenarioType, outcome string, duration time.Duration, affected int, resilienceChange float64) {
	r.ScenarioRunsTotal.WithLabelValues(scenarioType, outcome).Inc()
	r.ScenarioDuration.WithLabelValues(scenarioType).Observe(duration.Seconds())
	r.ScenarioAffectedComponents.WithLabelValues(scenarioType).Observe(float64(affected))
	r.ScenarioResilienceChange.WithLabelValues(scenarioType).Observe(resilienceChange)
}

// RecordAnalysis records a completed analysis
func (r *Registry) RecordAnalysis(analysis string, duration time.Duration) {
	r.AnalysesTotal.WithLabelValues(analysis).Inc()
	r.AnalysisDuration.WithLabelValues(analysis).Observe(duration.Seconds())
}

// SetGraphSize updates the graph size gauges from a kind → count map.
func (r *Registry) SetGraphSize(byKind map[string]int, relationships int) {
	for kind, n := range byKind {
		r.GraphNodesTotal.WithLabelValues(kind).Set(float64(n))
	}
	r.GraphRelationshipsTotal.Set(float64(relationships))
}

// Gatherer returns the underlying Prometheus gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
