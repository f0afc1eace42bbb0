// Package metrics provides Prometheus metrics for doris-rag
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Conversation turns
	TurnsTotal   *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec

	// External calls
	StepDuration *prometheus.HistogramVec
	StepErrors   *prometheus.CounterVec

	// Ingestion
	DocumentsTotal *prometheus.CounterVec
	ChunksTotal    prometheus.Counter
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doris_rag_turns_total",
				Help: "Total number of conversation turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "doris_rag_turn_duration_seconds",
				Help:    "Duration of conversation turns in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "doris_rag_step_duration_seconds",
				Help:    "Duration of external calls (augment, embed, search, generate) in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"step"},
		),
		StepErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doris_rag_step_errors_total",
				Help: "Total number of failed external calls",
			},
			[]string{"step"},
		),
		DocumentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doris_rag_ingest_documents_total",
				Help: "Documents seen by ingestion by result (indexed, unchanged, empty, removed)",
			},
			[]string{"result"},
		),
		ChunksTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "doris_rag_ingest_chunks_total",
				Help: "Total number of chunks written to the vector store",
			},
		),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTurn records one finished turn.
func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveStep records one external call.
func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	if err != nil {
		m.StepErrors.WithLabelValues(step).Inc()
	}
}

// Document counts one ingested document by result.
func (m *Metrics) Document(result string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(result).Inc()
}

// Chunks adds n written chunks.
func (m *Metrics) Chunks(n int) {
	if m == nil {
		return
	}
	m.ChunksTotal.Add(float64(n))
}
