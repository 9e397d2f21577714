// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered on an explicit registry so that tests and
// multiple servers in one process do not collide on the global default.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "luatutor"

// Metrics holds every collector the server updates.
type Metrics struct {
	registry *prometheus.Registry

	// SearchQueries counts non-empty search queries.
	SearchQueries prometheus.Counter
	// SearchResults counts subsections returned across all queries.
	SearchResults prometheus.Counter
	// Runs counts simulated runs. Labels: status (success, failure, busy, cancelled)
	Runs *prometheus.CounterVec
	// Validations counts validator verdicts. Labels: verdict (correct, incorrect)
	Validations *prometheus.CounterVec
	// RequestDuration measures HTTP handler latency. Labels: route, code
	RequestDuration *prometheus.HistogramVec
	// LiveSearches tracks open WebSocket search connections.
	LiveSearches prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchQueries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total non-empty search queries",
		}),
		SearchResults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total subsections returned by search",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total simulated code runs by status",
		}, []string{"status"}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total exercise validations by verdict",
		}, []string{"verdict"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"route", "code"}),
		LiveSearches: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_searches",
			Help:      "Open live search connections",
		}),
	}
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one query and its result count. Blank queries are
// not counted.
func (m *Metrics) ObserveSearch(searching bool, results int) {
	if !searching {
		return
	}
	m.SearchQueries.Inc()
	m.SearchResults.Add(float64(results))
}

// ObserveRun records the outcome of a run.
func (m *Metrics) ObserveRun(status string) {
	m.Runs.WithLabelValues(status).Inc()
}

// ObserveValidation records a validator verdict.
func (m *Metrics) ObserveValidation(correct bool) {
	verdict := "incorrect"
	if correct {
		verdict = "correct"
	}
	m.Validations.WithLabelValues(verdict).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
