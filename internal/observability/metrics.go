// Package observability exposes Prometheus metrics for the HTTP surface,
// the table engine and the background jobs.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tableRenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tahiry_table_render_duration_seconds",
		Help:    "Time spent assembling one rendered financial table.",
		Buckets: prometheus.DefBuckets,
	})
	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tahiry_exports_total",
		Help: "Number of table exports by format.",
	}, []string{"format"})
	importsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tahiry_imports_total",
		Help: "Number of workbook import runs.",
	})
	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tahiry_jobs_total",
		Help: "Number of background job runs by task and outcome.",
	}, []string{"task", "outcome"})
)

// ObserveTableRender records the duration of one table render.
func ObserveTableRender(d time.Duration) {
	tableRenderDuration.Observe(d.Seconds())
}

// IncExport counts one export in the given format.
func IncExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}

// IncImport counts one workbook import run.
func IncImport() {
	importsTotal.Inc()
}

// IncJob counts one background job run.
func IncJob(task, outcome string) {
	jobsTotal.WithLabelValues(task, outcome).Inc()
}

// Metrics collects the Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tahiry_http_requests_total",
		Help: "Number of HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tahiry_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration, tableRenderDuration, exportsTotal, importsTotal, jobsTotal)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
