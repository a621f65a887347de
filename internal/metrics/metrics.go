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

const namespace = "gem_engine"

// Attempt outcomes recorded per model call.
const (
	OutcomeSuccess = "success"
	OutcomeSkip    = "skip"
	OutcomeFail    = "fail"
)

// Metrics owns a private registry. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	modelAttempts *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	turns         *prometheus.CounterVec
	media         *prometheus.CounterVec
	cache         *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		modelAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_attempts_total",
			Help:      "Text model calls, partitioned by model and outcome.",
		}, []string{"model", "outcome"}),
		modelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Latency of text model calls.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
		}, []string{"model"}),
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Resolved turns, partitioned by result.",
		}, []string{"result"}),
		media: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_requests_total",
			Help:      "Image and audio generations, partitioned by kind, backend and result.",
		}, []string{"kind", "backend", "result"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_cache_lookups_total",
			Help:      "Media cache lookups, partitioned by kind and hit/miss.",
		}, []string{"kind", "result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, partitioned by path and status code class.",
		}, []string{"path", "code"}),
	}
}

// Registry exposes the underlying registry for tests and custom gatherers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveModel records one text model attempt.
func (m *Metrics) ObserveModel(model, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.modelAttempts.WithLabelValues(model, outcome).Inc()
	m.modelLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// Turn records the final result of a turn request ("primary", "backup",
// "exhausted" or "failed").
func (m *Metrics) Turn(result string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(result).Inc()
}

// Media records an image or audio generation.
func (m *Metrics) Media(kind, backend string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.media.WithLabelValues(kind, backend, result).Inc()
}

// CacheLookup records a media cache hit or miss.
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(kind, result).Inc()
}

// HTTPRequest records a served request. code is collapsed to its class
// (2xx, 4xx, 5xx).
func (m *Metrics) HTTPRequest(path string, code int) {
	if m == nil {
		return
	}
	class := strconv.Itoa(code/100) + "xx"
	m.httpRequests.WithLabelValues(path, class).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
