package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	pipelineRunsTotal     *prometheus.CounterVec
	pipelineRunDuration   *prometheus.HistogramVec
	chunksProcessed       prometheus.Counter
	segmentFailures       prometheus.Counter
	capabilityRetries     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteflow_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteflow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteflow_upstream_requests_total",
				Help: "Total upstream OpenAI-compatible API requests.",
			},
			[]string{"endpoint", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteflow_upstream_request_duration_seconds",
				Help:    "Upstream request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		pipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteflow_pipeline_runs_total",
				Help: "Completed minutes pipeline runs by processing method.",
			},
			[]string{"method"},
		),
		pipelineRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteflow_pipeline_run_duration_seconds",
				Help:    "Minutes pipeline run duration in seconds.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"method"},
		),
		chunksProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minuteflow_pipeline_chunks_processed_total",
				Help: "Transcript segments submitted for extraction.",
			},
		),
		segmentFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minuteflow_pipeline_segment_failures_total",
				Help: "Segment extraction calls that failed and contributed an empty result.",
			},
		),
		capabilityRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteflow_capability_retries_total",
				Help: "Capability call retries by failure kind.",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamDuration,
		m.pipelineRunsTotal,
		m.pipelineRunDuration,
		m.chunksProcessed,
		m.segmentFailures,
		m.capabilityRetries,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.upstreamRequestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.upstreamDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRun(method string, chunks int, duration time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRunsTotal.WithLabelValues(method).Inc()
	m.pipelineRunDuration.WithLabelValues(method).Observe(duration.Seconds())
	if chunks > 0 {
		m.chunksProcessed.Add(float64(chunks))
	}
}

func (m *Metrics) IncSegmentFailure() {
	if m == nil {
		return
	}
	m.segmentFailures.Inc()
}

func (m *Metrics) IncCapabilityRetry(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.capabilityRetries.WithLabelValues(kind).Inc()
}
