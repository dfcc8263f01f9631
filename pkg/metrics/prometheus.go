// Package metrics provides Prometheus metrics for the slumber prediction service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// knownQualities bounds the cardinality of the quality label.
var knownQualities = map[string]struct{}{ //nolint:gochecknoglobals // fixed label set
	"Good":    {},
	"Average": {},
	"Poor":    {},
}

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Prediction outcomes
	predictions           *prometheus.CounterVec
	predictionErrors      *prometheus.CounterVec
	classificationLatency prometheus.Histogram

	// Cache
	cacheRequests *prometheus.CounterVec
	cacheEntries  prometheus.Gauge

	// History
	historyRecords      prometheus.Gauge
	historyWriteErrors  prometheus.Counter
	historyWriteLatency prometheus.Histogram

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDropped  *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	rateLimited         prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "slumber",
		subsystem:        "predictor",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Predictions served, by quality category"),
		[]string{"quality"},
	)
	m.predictionErrors = auto.NewCounterVec(
		m.counterOpts("prediction_errors_total", "Rejected or failed predictions, by reason"),
		[]string{"reason"},
	)
	m.classificationLatency = auto.NewHistogram(
		m.histogramOpts("classification_latency_milliseconds", "Time spent classifying a habit record"),
	)

	m.cacheRequests = auto.NewCounterVec(
		m.counterOpts("cache_requests_total", "Prediction cache lookups, by result"),
		[]string{"result"},
	)
	m.cacheEntries = auto.NewGauge(m.gaugeOpts("cache_entries", "Entries currently held by the in-memory prediction cache"))

	m.historyRecords = auto.NewGauge(m.gaugeOpts("history_records", "Predictions currently retained in history"))
	m.historyWriteErrors = auto.NewCounter(m.counterOpts("history_write_errors_total", "Failed history writes"))
	m.historyWriteLatency = auto.NewHistogram(
		m.histogramOpts("history_write_latency_milliseconds", "History write latency"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "History writes waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the history write queue"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "History writes accepted by the queue"))
	m.queueDropped = auto.NewCounterVec(
		m.counterOpts("queue_dropped_total", "History writes rejected by the queue, by reason"),
		[]string{"reason"},
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "History writer workers running"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spends on one history write"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint and error type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.rateLimited = auto.NewCounter(m.counterOpts("rate_limited_total", "Requests rejected by the rate limiter"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordPrediction counts a served prediction. Labels outside the known
// quality set are rejected to keep the series bounded.
func (m *Manager) RecordPrediction(quality string) error {
	if _, ok := knownQualities[quality]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuality, quality)
	}
	m.predictions.WithLabelValues(quality).Inc()
	return nil
}

// RecordPrediction counts a served prediction on the global manager.
func RecordPrediction(quality string) error {
	return globalManager.RecordPrediction(quality)
}

// RecordPredictionError counts a rejected or failed prediction.
func RecordPredictionError(reason string) {
	globalManager.predictionErrors.WithLabelValues(reason).Inc()
}

// RecordClassificationLatency records classification latency in milliseconds.
func RecordClassificationLatency(latencyMs float64) {
	globalManager.classificationLatency.Observe(latencyMs)
}

// RecordCacheHit counts a cache hit.
func RecordCacheHit() {
	globalManager.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss() {
	globalManager.cacheRequests.WithLabelValues("miss").Inc()
}

// UpdateCacheEntries sets the in-memory cache size.
func UpdateCacheEntries(n int) {
	globalManager.cacheEntries.Set(float64(n))
}

// UpdateHistoryRecords sets the number of retained predictions.
func UpdateHistoryRecords(n int) {
	globalManager.historyRecords.Set(float64(n))
}

// RecordHistoryWriteError counts a failed history write.
func RecordHistoryWriteError() {
	globalManager.historyWriteErrors.Inc()
}

// RecordHistoryWriteLatency records a history write latency in milliseconds.
func RecordHistoryWriteLatency(latencyMs float64) {
	globalManager.historyWriteLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDropped counts a rejected enqueue.
func RecordQueueDropped(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records one worker job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
