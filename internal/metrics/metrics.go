// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry prometheus.Gatherer

	upstreamRequestsTotal      *prometheus.CounterVec
	extractedItemsTotal        *prometheus.CounterVec
	extractionErrorsTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: gatherer,
		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zara_upstream_requests_total",
				Help: "Total number of upstream category requests, labeled by status.",
			},
			[]string{"status"},
		),
		extractedItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zara_extracted_items_total",
				Help: "Total number of extracted categories and subcategories, labeled by kind.",
			},
			[]string{"kind"},
		),
		extractionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zara_extraction_errors_total",
				Help: "Total number of failed extractions, labeled by reason.",
			},
			[]string{"reason"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// Handler returns an http.Handler for exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records an upstream answer. status is the HTTP status code or 0 for transport errors.
func (m *Metrics) ObserveUpstream(status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequestsTotal.WithLabelValues(label).Inc()
}

// ObserveExtracted adds count items of the given kind ("category", "subcategory").
func (m *Metrics) ObserveExtracted(kind string, count int) {
	if count > 0 {
		m.extractedItemsTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// ObserveExtractionError counts a failed extraction ("parse", "depth").
func (m *Metrics) ObserveExtractionError(reason string) {
	m.extractionErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func (m *Metrics) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request counts and latencies labeled by the matched chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
