// Package metrics provides Prometheus metrics for the epochboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes.
const (
	OutcomeStatic  = "static"
	OutcomeCurrent = "current"
	OutcomeWon     = "won"
	OutcomeLost    = "lost"
	OutcomeError   = "error"
)

// Reap results.
const (
	ReapScheduled = "scheduled"
	ReapSkipped   = "skipped"
	ReapDuplicate = "duplicate"
	ReapDropped   = "dropped"
	ReapSucceeded = "succeeded"
	ReapFailed    = "failed"
)

// Manager manages all Prometheus metrics for the epochboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Resolution metrics
	resolutions      *prometheus.CounterVec
	resolveLatency   prometheus.Histogram
	rollovers        prometheus.Counter
	versionsAdvanced prometheus.Counter
	commitConflicts  prometheus.Counter
	longIdleGaps     prometheus.Counter

	// Retention metrics
	reaps       *prometheus.CounterVec
	reapedRows  prometheus.Counter
	reapLatency prometheus.Histogram

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue and worker metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError *prometheus.CounterVec
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

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
		namespace:        "epochboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.resolutions = auto.NewCounterVec(m.counterOpts("resolutions_total", "Epoch resolutions by outcome"), []string{"outcome"})
	m.resolveLatency = auto.NewHistogram(m.histogramOpts("resolve_latency_milliseconds", "Latency of a full epoch resolution"))
	m.rollovers = auto.NewCounter(m.counterOpts("rollovers_total", "Version advancements committed by this process"))
	m.versionsAdvanced = auto.NewCounter(m.counterOpts("versions_advanced_total", "Sum of versions skipped forward across all rollovers"))
	m.commitConflicts = auto.NewCounter(m.counterOpts("commit_conflicts_total", "Conditional commits lost to a concurrent resolver"))
	m.longIdleGaps = auto.NewCounter(m.counterOpts("long_idle_gaps_total", "Rollovers that advanced past the long idle threshold"))

	m.reaps = auto.NewCounterVec(m.counterOpts("reaps_total", "Retention reaps by result"), []string{"result"})
	m.reapedRows = auto.NewCounter(m.counterOpts("reaped_rows_total", "Score rows deleted by retention"))
	m.reapLatency = auto.NewHistogram(m.histogramOpts("reap_latency_milliseconds", "Latency of retention deletes"))

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds", "Store operation latency"), []string{"operation"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Store operation failures"), []string{"operation"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("reap_queue_size", "Pending reap jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("reap_queue_capacity", "Maximum pending reap jobs"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("reap_queue_utilization_ratio", "Pending reap jobs over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("reap_queue_enqueued_total", "Reap jobs accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("reap_queue_dequeued_total", "Reap jobs handed to workers"))
	m.queueEnqueueError = auto.NewCounterVec(m.counterOpts("reap_queue_enqueue_errors_total", "Reap jobs rejected by the queue"), []string{"reason"})
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("reap_worker_count", "Running reap workers"))
	m.workerErrors = auto.NewCounter(m.counterOpts("reap_worker_errors_total", "Reap jobs that returned an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"), []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(m.counterOpts("http_errors_total", "HTTP error responses by endpoint and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordResolution counts a resolution and its latency.
func RecordResolution(outcome string, latencyMs float64) {
	globalManager.resolutions.WithLabelValues(outcome).Inc()
	globalManager.resolveLatency.Observe(latencyMs)
}

// RecordRollover counts a committed rollover that advanced by n versions.
func RecordRollover(n int64) {
	globalManager.rollovers.Inc()
	globalManager.versionsAdvanced.Add(float64(n))
}

// RecordCommitConflict counts a lost conditional commit.
func RecordCommitConflict() {
	globalManager.commitConflicts.Inc()
}

// RecordLongIdleGap counts a rollover past the idle threshold.
func RecordLongIdleGap() {
	globalManager.longIdleGaps.Inc()
}

// RecordReap counts a reap by result.
func RecordReap(result string) {
	globalManager.reaps.WithLabelValues(result).Inc()
}

// RecordReapedRows adds deleted rows and the delete latency.
func RecordReapedRows(rows int64, latencyMs float64) {
	globalManager.reapedRows.Add(float64(rows))
	globalManager.reapLatency.Observe(latencyMs)
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateQueueSize sets the pending reap job count and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueError.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running reap workers.
func UpdateWorkerCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
