package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the delivery server.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	rewriteFallbacks prometheus.Counter
	renderDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers the delivery metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minisite_requests_total",
				Help: "Requests handled, by route kind and response status",
			},
			[]string{"kind", "status"},
		),
		rewriteFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minisite_rewrite_fallbacks_total",
				Help: "Pages served unchanged because they could not be parsed",
			},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minisite_render_duration_seconds",
				Help:    "Time spent reading and rewriting pages",
				Buckets: prometheus.DefBuckets,
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.rewriteFallbacks,
		m.renderDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordRequest(kind string, status int) {
	m.requestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
}

func (m *Metrics) recordRender(start time.Time, rewritten bool, document bool) {
	m.renderDuration.Observe(time.Since(start).Seconds())
	if document && !rewritten {
		m.rewriteFallbacks.Inc()
	}
}
