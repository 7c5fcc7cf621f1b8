// Package metrics defines the Prometheus metrics of the application.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wodcoach"

// Suggestion sources.
const (
	SourceTemplate     = "template"
	SourceOptions      = "options"
	SourcePersonalized = "personalized"
	SourceQuick        = "quick"
	SourceAI           = "ai"
)

// Manager holds the collectors that the application updates.
type Manager struct {
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterSuggestions        *prometheus.CounterVec
	CounterNormalizerResults  *prometheus.CounterVec

	GaugeRequests prometheus.Gauge

	HistRequestDuration   prometheus.Histogram
	HistAIRequestDuration prometheus.Histogram
}

// NewRegistry creates a registry with the Go runtime and process collectors. Database pools passed as
// named pools are reported through their sql.DBStats.
func NewRegistry(pools map[string]*sql.DB) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // defaults.
	)
	for name, pool := range pools {
		reg.MustRegister(collectors.NewDBStatsCollector(pool, name))
	}
	return reg
}

// NewTestManager returns a manager registered to its own registry.
func NewTestManager() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(reg), reg
}

// NewManager creates the collectors and registers them to reg.
func NewManager(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of handled HTTP requests",
		}, []string{"method", "status"}),
		CounterHandleRequestPanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		CounterSuggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "The total number of generated workout suggestions by source",
		}, []string{"source"}),
		CounterNormalizerResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalizer_results_total",
			Help:      "The total number of normalized model responses by the tier that produced the workout",
		}, []string{"tier"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of requests being served",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		HistAIRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Duration of generative model calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
	}
}
