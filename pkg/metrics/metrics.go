// Package metrics defines the Prometheus collectors used by the work queue,
// the index builder, and the query processor, and exposes an HTTP handler
// for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	TasksTotal      *prometheus.CounterVec
	TaskDuration    prometheus.Histogram
	TasksPending    prometheus.Gauge
	FilesIndexed    *prometheus.CounterVec
	StemsIndexed    prometheus.Counter
	BuildDuration   prometheus.Histogram
	QueriesTotal    *prometheus.CounterVec
	SearchLatency   prometheus.Histogram
	SearchResults   prometheus.Histogram
	IndexStems      prometheus.Gauge
	IndexLocations  prometheus.Gauge
	SinkErrorsTotal *prometheus.CounterVec
	gatherer        prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps tests independent of one another.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workqueue_tasks_total",
				Help: "Total work queue tasks by outcome (ok, failed, abandoned).",
			},
			[]string{"status"},
		),
		TaskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workqueue_task_duration_seconds",
				Help:    "Work queue task run time in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		TasksPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workqueue_tasks_pending",
				Help: "Submitted work queue tasks that have not completed.",
			},
		),
		FilesIndexed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_files_total",
				Help: "Files processed by the builder by outcome (ok, failed).",
			},
			[]string{"status"},
		),
		StemsIndexed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_stems_total",
				Help: "Total stem occurrences added to the index.",
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall-clock time of a full index build.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Query lines by outcome (searched, cached, empty).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Index search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		IndexStems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_distinct_stems",
				Help: "Distinct stems held by the index after the last build.",
			},
		),
		IndexLocations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_locations",
				Help: "Locations with a positive word count after the last build.",
			},
		),
		SinkErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_errors_total",
				Help: "Failures publishing results or events to external sinks.",
			},
			[]string{"sink"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.TasksTotal,
		m.TaskDuration,
		m.TasksPending,
		m.FilesIndexed,
		m.StemsIndexed,
		m.BuildDuration,
		m.QueriesTotal,
		m.SearchLatency,
		m.SearchResults,
		m.IndexStems,
		m.IndexLocations,
		m.SinkErrorsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}
