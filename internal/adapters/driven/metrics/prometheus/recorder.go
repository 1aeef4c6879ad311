// Package prometheus provides a MetricsRecorder backed by a private
// Prometheus registry, plus the HTTP pieces that expose it.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder holds all procrag metrics.
type Recorder struct {
	// Pipeline metrics
	retrievalDuration *prometheus.HistogramVec
	intentClassified  *prometheus.CounterVec
	rerankFallbacks   prometheus.Counter
	gatingDegraded    *prometheus.CounterVec
	batchQueries      *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRecorder creates a recorder with every metric registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		retrievalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "procrag_retrieval_duration_seconds",
				Help:    "Retrieval latency per source in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"source", "status"},
		),

		intentClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procrag_intent_classified_total",
				Help: "Classified queries by intent and deciding stage",
			},
			[]string{"intent", "stage"},
		),

		rerankFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "procrag_rerank_fallback_total",
				Help: "Reranks that fell back to fusion order",
			},
		),

		gatingDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procrag_gating_degraded_total",
				Help: "Gating lookups that failed and were replaced by empty data",
			},
			[]string{"step"},
		),

		batchQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procrag_batch_queries_total",
				Help: "Replayed batch queries by outcome",
			},
			[]string{"outcome"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procrag_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "procrag_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		registry: registry,
	}

	registry.MustRegister(
		r.retrievalDuration,
		r.intentClassified,
		r.rerankFallbacks,
		r.gatingDegraded,
		r.batchQueries,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	)

	return r
}

// RetrievalDuration records one source's latency.
func (r *Recorder) RetrievalDuration(source domain.RetrievalSource, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.retrievalDuration.WithLabelValues(string(source), status).Observe(d.Seconds())
}

// IntentClassified counts a classification.
func (r *Recorder) IntentClassified(intent domain.Intent, stage string) {
	r.intentClassified.WithLabelValues(string(intent), stage).Inc()
}

// RerankFallback counts a rerank fallback.
func (r *Recorder) RerankFallback() {
	r.rerankFallbacks.Inc()
}

// GatingDegraded counts a recovered gating failure.
func (r *Recorder) GatingDegraded(step string) {
	r.gatingDegraded.WithLabelValues(step).Inc()
}

// BatchQuery counts a batch query.
func (r *Recorder) BatchQuery(outcome string) {
	r.batchQueries.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (r *Recorder) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Middleware records request metrics labelled by chi route pattern, so
// path parameters do not explode label cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, req)

		r.RecordHTTPRequest(req.Method, routeName(req), wrapped.statusCode, time.Since(start))
	})
}

// routeName must run after the router has matched.
func routeName(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
