// Package metrics defines the Prometheus metric collectors used across the
// search engine and exposes an HTTP handler for scraping.
//
// Every helper method is safe to call on a nil *Metrics so components can
// take an optional metrics dependency without guarding each call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the search engine.
type Metrics struct {
	registry prometheus.Gatherer

	FilesIndexedTotal   prometheus.Counter
	PagesCrawledTotal   *prometheus.CounterVec
	TasksTotal          *prometheus.CounterVec
	TaskDuration        prometheus.Histogram
	QueuePending        prometheus.Gauge
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        prometheus.Histogram
	QueryResultsCount   prometheus.Histogram
	IndexWords          prometheus.Gauge
	IndexLocations      prometheus.Gauge
	OutputWritesTotal   *prometheus.CounterVec
	ExportsTotal        *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg gets a
// private registry so tests can build isolated instances.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		registry: gatherer,
		FilesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "files_indexed_total",
				Help: "Total number of text files added to the index.",
			},
		),
		PagesCrawledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pages_crawled_total",
				Help: "Total crawled pages by status (indexed, failed).",
			},
			[]string{"status"},
		),
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "work_queue_tasks_total",
				Help: "Total work queue tasks by outcome (ok, failed, abandoned).",
			},
			[]string{"status"},
		),
		TaskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "work_queue_task_duration_seconds",
				Help:    "Work queue task run time in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		QueuePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "work_queue_pending",
				Help: "Tasks submitted but not yet finished.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total query lines by result type (hit, cached, empty).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds for uncached queries.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		IndexWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_words",
				Help: "Distinct words in the index after the last build phase.",
			},
		),
		IndexLocations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_locations",
				Help: "Distinct locations in the index after the last build phase.",
			},
		),
		OutputWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "output_writes_total",
				Help: "Output file writes by kind and status.",
			},
			[]string{"kind", "status"},
		),
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exports_total",
				Help: "Result exports to external sinks by sink and status.",
			},
			[]string{"sink", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.FilesIndexedTotal,
		m.PagesCrawledTotal,
		m.TasksTotal,
		m.TaskDuration,
		m.QueuePending,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.IndexWords,
		m.IndexLocations,
		m.OutputWritesTotal,
		m.ExportsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FileIndexed() {
	if m == nil {
		return
	}
	m.FilesIndexedTotal.Inc()
}

func (m *Metrics) PageCrawled(status string) {
	if m == nil {
		return
	}
	m.PagesCrawledTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) TaskFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(status).Inc()
	if elapsed > 0 {
		m.TaskDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.QueuePending.Set(float64(n))
}

func (m *Metrics) QuerySearched(resultType string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(resultType).Inc()
	if resultType != "cached" {
		m.QueryLatency.Observe(elapsed.Seconds())
		m.QueryResultsCount.Observe(float64(results))
	}
}

func (m *Metrics) SetIndexSize(words, locations int) {
	if m == nil {
		return
	}
	m.IndexWords.Set(float64(words))
	m.IndexLocations.Set(float64(locations))
}

func (m *Metrics) OutputWritten(kind string, err error) {
	if m == nil {
		return
	}
	m.OutputWritesTotal.WithLabelValues(kind, statusOf(err)).Inc()
}

func (m *Metrics) Exported(sink string, err error) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(sink, statusOf(err)).Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
