// Package metrics provides Prometheus metrics for the Veridex evaluation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager manages all Prometheus metrics for the Veridex service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Pipeline metrics
	jobsEnqueued  prometheus.Counter
	jobsDebounced prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobDuration   prometheus.Histogram
	queueDepth    prometheus.Gauge

	// Chain intake metrics
	chainEvents        *prometheus.CounterVec
	chainEventsDropped prometheus.Counter

	// Source aggregation metrics
	sourceErrors  *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec

	// Synthesis metrics
	insightsSynthesized prometheus.Counter
	insightsFallback    prometheus.Counter
	llmLatency          prometheus.Histogram
	proberErrors        prometheus.Counter
	webhookFailures     prometheus.Counter

	// Store metrics
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	insightsRecorded prometheus.Counter
	subjectsTracked  prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "veridex",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.jobsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_enqueued_total",
		Help: "Total number of evaluation jobs accepted by the queue",
	})
	m.jobsDebounced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_debounced_total",
		Help: "Total number of enqueue requests discarded because the subject was already pending",
	})
	m.jobsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_completed_total",
		Help: "Total number of evaluation jobs that ran to completion",
	})
	m.jobsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "jobs_failed_total",
		Help: "Total number of evaluation jobs discarded after a failure",
	})
	m.jobDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "job_duration_milliseconds",
		Help:    "Histogram of end-to-end evaluation job duration in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_depth",
		Help: "Current number of pending evaluation jobs",
	})

	m.chainEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "chain_events_total",
		Help: "Total number of chain events observed, by event type",
	}, []string{"type"})
	m.chainEventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "chain_events_dropped_total",
		Help: "Total number of chain events dropped because the subject could not be resolved",
	})

	m.sourceErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "source_errors_total",
		Help: "Total number of source reader failures, by source",
	}, []string{"source"})
	m.sourceLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "source_latency_milliseconds",
		Help:    "Source reader call latency in milliseconds, by source",
		Buckets: m.histogramBuckets,
	}, []string{"source"})

	m.insightsSynthesized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "insights_synthesized_total",
		Help: "Total number of insights produced by the language model path",
	})
	m.insightsFallback = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "insights_fallback_total",
		Help: "Total number of insights produced by the deterministic fallback path",
	})
	m.llmLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "llm_latency_milliseconds",
		Help:    "Language model completion latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.proberErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "prober_errors_total",
		Help: "Total number of security prober failures (degraded to nil report)",
	})
	m.webhookFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "webhook_failures_total",
		Help: "Total number of failed high-risk webhook notifications",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_hits_total",
		Help: "Total number of cache lookups answered by a live entry",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_misses_total",
		Help: "Total number of cache lookups that found no live entry",
	})
	m.insightsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "insights_recorded_total",
		Help: "Total number of insights appended to the history",
	})
	m.subjectsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "subjects_tracked",
		Help: "Number of subjects with at least one recorded insight",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Current number of goroutines",
	})
}

// Package-level helpers against the global manager.

func RecordJobEnqueued()  { globalManager.jobsEnqueued.Inc() }
func RecordJobDebounced() { globalManager.jobsDebounced.Inc() }
func RecordJobCompleted() { globalManager.jobsCompleted.Inc() }
func RecordJobFailed()    { globalManager.jobsFailed.Inc() }

func RecordJobDuration(ms float64) { globalManager.jobDuration.Observe(ms) }
func UpdateQueueDepth(depth int)   { globalManager.queueDepth.Set(float64(depth)) }

func RecordChainEvent(eventType string) {
	globalManager.chainEvents.WithLabelValues(eventType).Inc()
}
func RecordChainEventDropped() { globalManager.chainEventsDropped.Inc() }

func RecordSourceError(source string) {
	globalManager.sourceErrors.WithLabelValues(source).Inc()
}
func RecordSourceLatency(source string, ms float64) {
	globalManager.sourceLatency.WithLabelValues(source).Observe(ms)
}

func RecordInsightSynthesized() { globalManager.insightsSynthesized.Inc() }
func RecordInsightFallback()    { globalManager.insightsFallback.Inc() }
func RecordLLMLatency(ms float64) {
	globalManager.llmLatency.Observe(ms)
}
func RecordProberError()    { globalManager.proberErrors.Inc() }
func RecordWebhookFailure() { globalManager.webhookFailures.Inc() }

func RecordCacheHit()        { globalManager.cacheHits.Inc() }
func RecordCacheMiss()       { globalManager.cacheMisses.Inc() }
func RecordInsightRecorded() { globalManager.insightsRecorded.Inc() }
func UpdateSubjectsTracked(count int) {
	globalManager.subjectsTracked.Set(float64(count))
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager so the
// health endpoint can serve exactly these metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
