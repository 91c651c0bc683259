package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/waqf-policy-engine/services"
)

// OutcomeAccepted labels decisions that let the mutation through
const OutcomeAccepted = "accepted"

// Metrics holds the policy gateway's collectors
type Metrics struct {
	registry *prometheus.Registry

	decisions        *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	reactorFailures  *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policy_decisions_total",
				Help: "Policy decisions by collection, operation and outcome.",
			},
			[]string{"collection", "operation", "outcome"},
		),
		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "policy_decision_duration_seconds",
				Help:    "Time spent asserting a mutation, store queries included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),
		reactorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policy_reactor_failures_total",
				Help: "Post-commit reactions that failed after the document was committed.",
			},
			[]string{"collection"},
		),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.decisions, m.decisionDuration, m.reactorFailures,
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDecision records the outcome of an assertion. A nil error counts as
// accepted; otherwise the outcome is the error type.
func (m *Metrics) ObserveDecision(collection, operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(collection, operation, Outcome(err)).Inc()
	m.decisionDuration.WithLabelValues(collection, operation).Observe(elapsed.Seconds())
}

// ReactorFailed counts a failed post-commit reaction
func (m *Metrics) ReactorFailed(collection string) {
	if m == nil {
		return
	}
	m.reactorFailures.WithLabelValues(collection).Inc()
}

// Outcome maps an assertion result to its metric label
func Outcome(err error) string {
	if err == nil {
		return OutcomeAccepted
	}
	if t := services.GetErrorType(err); t != "" {
		return string(t)
	}
	return string(services.ErrorTypeInternal)
}

// Instrument records request count, latency and in-flight gauge. route
// resolves the low-cardinality label for a request.
func (m *Metrics) Instrument(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			label := route(r)
			status := strconv.Itoa(sw.code)
			m.httpRequestDuration.WithLabelValues(r.Method, label, status).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(r.Method, label, status).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
