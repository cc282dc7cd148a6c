// Package metrics exposes Prometheus metrics for the HTTP API and the
// scrape pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

const namespace = "scraperapi"

// Scrape durations run into minutes; DefBuckets stop at 10s.
var longBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// Metrics holds the collectors of one process. Each instance has its own
// registry so that tests do not share state.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
	stepErrors   *prometheus.CounterVec
	runs         *prometheus.CounterVec
	cards        *prometheus.CounterVec
	llmFailures  *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   longBuckets,
			},
			[]string{"method", "endpoint"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_step_duration_seconds",
				Help:      "Pipeline step duration in seconds",
				Buckets:   longBuckets,
			},
			[]string{"bank", "step"},
		),
		stepErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_step_errors_total",
				Help:      "Total number of failed pipeline steps",
			},
			[]string{"bank", "step"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of scrape runs by outcome",
			},
			[]string{"status"},
		),
		cards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cards_extracted_total",
				Help:      "Total number of card records returned",
			},
			[]string{"bank"},
		),
		llmFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_failures_total",
				Help:      "Total number of card records whose transform failed",
			},
			[]string{"bank"},
		),
		jobsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_flight",
				Help:      "Number of asynchronous scrape jobs not yet finished",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served request. endpoint is the route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// ObserveStep records a pipeline step. It has the signature of
// pipeline.Observer.
func (m *Metrics) ObserveStep(bank, step string, d time.Duration, err error) {
	m.stepDuration.WithLabelValues(bank, step).Observe(d.Seconds())
	if err != nil {
		m.stepErrors.WithLabelValues(bank, step).Inc()
	}
}

// RecordRun records the outcome of a scrape.
func (m *Metrics) RecordRun(result *model.RunResult, err error) {
	if err != nil || result == nil {
		m.runs.WithLabelValues(string(model.StatusFailed)).Inc()
		return
	}
	m.runs.WithLabelValues(string(model.StatusCompleted)).Inc()
	for _, d := range result.Details {
		m.cards.WithLabelValues(d.Bank).Inc()
		if d.LLMFailed {
			m.llmFailures.WithLabelValues(d.Bank).Inc()
		}
	}
}

// JobStarted and JobFinished track asynchronous jobs.
func (m *Metrics) JobStarted()  { m.jobsInFlight.Inc() }
func (m *Metrics) JobFinished() { m.jobsInFlight.Dec() }
