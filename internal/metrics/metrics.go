// Package metrics exposes Prometheus collectors for the page framework.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/pubsub"
)

const namespace = "pagetypes"

// Result label values.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultCorrupt      = "corrupt"
	ResultUnauthorized = "unauthorized"
	ResultConflict     = "conflict"
	ResultInvalid      = "invalid"
	ResultError        = "error"
)

// Metrics owns a private registry so tests and multiple servers do not
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	reads        *prometheus.CounterVec
	writes       *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	apiCalls     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	reloads      prometheus.Counter
	changes      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "collection_reads_total",
			Help: "User collection reads by element type and result.",
		}, []string{"type", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "collection_writes_total",
			Help: "User collection snapshot writes by element type and result.",
		}, []string{"type", "result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "page_resolutions_total",
			Help: "Page lookups by name, by element type and result.",
		}, []string{"type", "result"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_calls_total",
			Help: "Automation API calls by action and result code.",
		}, []string{"action", "result_code"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "row_cache_lookups_total",
			Help: "Row cache lookups by datasource and outcome.",
		}, []string{"datasource", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "builtin_reloads_total",
			Help: "Reloads of the builtin definitions.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "element_changes_total",
			Help: "Saved instance changes by element type and event.",
		}, []string{"type", "event"}),
	}
	m.registry.MustRegister(
		m.reads, m.writes, m.resolutions, m.apiCalls, m.cacheLookups,
		m.httpRequests, m.httpDuration, m.reloads, m.changes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, element.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, element.ErrConfigCorrupt):
		return ResultCorrupt
	case errors.Is(err, element.ErrUnauthorized):
		return ResultUnauthorized
	case errors.Is(err, element.ErrConflict):
		return ResultConflict
	case errors.Is(err, element.ErrInvalid), errors.Is(err, element.ErrMissingContext), errors.Is(err, element.ErrIndex):
		return ResultInvalid
	default:
		return ResultError
	}
}

// ObserveResolution counts one page lookup.
func (m *Metrics) ObserveResolution(typeName string, err error) {
	m.resolutions.WithLabelValues(typeName, Result(err)).Inc()
}

// ObserveAPICall counts one automation API call.
func (m *Metrics) ObserveAPICall(action string, resultCode int) {
	m.apiCalls.WithLabelValues(action, strconv.Itoa(resultCode)).Inc()
}

// ObserveReload counts one builtin reload.
func (m *Metrics) ObserveReload() { m.reloads.Inc() }

// ObserveChange counts one saved instance change.
func (m *Metrics) ObserveChange(ev pubsub.Event[element.Change]) {
	m.changes.WithLabelValues(ev.Payload.Type, string(ev.Type)).Inc()
}

// CacheLookup implements rowsource.CacheObserver.
func (m *Metrics) CacheLookup(datasource string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(datasource, outcome).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Instrument counts and times the requests of one route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
