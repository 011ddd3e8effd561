// Package observability holds the Prometheus metrics collector and the HTTP
// instrumentation middleware.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Query metrics
	QueriesHandled      *prometheus.CounterVec
	AggregationDuration prometheus.Histogram

	// Source metrics
	SourceFetches *prometheus.CounterVec
}

// NewCollector creates a metrics collector with its own registry, so tests
// can build as many as they like without duplicate-registration panics.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	queriesHandled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_queries_total",
			Help:      "Total number of handled assistant queries",
		},
		[]string{"intent", "status"},
	)

	aggregationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_aggregation_duration_seconds",
			Help:      "Time spent merging the per-source timelines",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sourceFetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Per-collection fetch outcomes",
		},
		[]string{"source", "status"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		queriesHandled,
		aggregationDuration,
		sourceFetches,
	)

	return &Collector{
		registry:            registry,
		HTTPRequests:        httpRequests,
		HTTPDuration:        httpDuration,
		QueriesHandled:      queriesHandled,
		AggregationDuration: aggregationDuration,
		SourceFetches:       sourceFetches,
	}
}

// Handler exposes the collector's registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// QueryHandled records one handled assistant query.
func (c *Collector) QueryHandled(intentType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.QueriesHandled.WithLabelValues(intentType, status).Inc()
}

// AggregationObserved records the wall clock of one timeline aggregation.
func (c *Collector) AggregationObserved(d time.Duration) {
	c.AggregationDuration.Observe(d.Seconds())
}

// SourceFetched records one adapter fetch outcome.
func (c *Collector) SourceFetched(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.SourceFetches.WithLabelValues(source, status).Inc()
}

// Middleware instruments every request with the HTTP counter and histogram,
// labeled by chi route pattern rather than raw path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
