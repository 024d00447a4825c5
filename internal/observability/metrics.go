// Package observability holds the Prometheus metrics and the OpenTelemetry tracer
// shared by the engine and the HTTP surface.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

const namespace = "snapdiff"

// Tracer is the package-level tracer. Spans are no-ops until the host process
// installs a TracerProvider.
var Tracer = otel.Tracer("snapdiff.core")

// Metrics owns its registry so several instances can coexist in one process.
// A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	issues         *prometheus.CounterVec
	pairs          *prometheus.CounterVec
	compareLatency *prometheus.HistogramVec
	resolveLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		// Labels: endpoint (route), status (HTTP status code)
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"endpoint", "status"}),

		// Labels: code (issue code)
		issues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "issues_total",
			Help:      "Issues recorded while serving requests",
		}, []string{"code"}),

		// Labels: source (rows, snapshot, rows_fallback)
		pairs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "pairs_total",
			Help:      "Compared project pairs by the differ that produced them",
		}, []string{"source"}),

		// Labels: outcome (ok, rejected)
		compareLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compare_duration_seconds",
			Help:      "Duration of multi-project comparisons",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		// Labels: kind (source kind), outcome (ok, issue)
		resolveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "duration_seconds",
			Help:      "Duration of per-project resolution",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 90},
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) ObserveIssue(code string) {
	if m == nil {
		return
	}
	m.issues.WithLabelValues(code).Inc()
}

func (m *Metrics) ObservePair(source string) {
	if m == nil {
		return
	}
	m.pairs.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveCompare(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.compareLatency.WithLabelValues(outcome(ok, "ok", "rejected")).Observe(d.Seconds())
}

func (m *Metrics) ObserveResolve(kind string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.resolveLatency.WithLabelValues(kind, outcome(ok, "ok", "issue")).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
