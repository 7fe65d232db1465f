// Package metrics provides Prometheus metrics for the caption leaderboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Contest
	captionsSubmitted prometheus.Counter
	scoresApplied     prometheus.Counter
	leaderboardReads  prometheus.Counter

	// Storage
	storageReadLatency  *prometheus.HistogramVec
	storageWriteLatency *prometheus.HistogramVec
	storageErrors       *prometheus.CounterVec
	writeConflicts      prometheus.Counter

	// Compute collaborator
	computeRuns    *prometheus.CounterVec
	computeLatency prometheus.Histogram
	computeRetries prometheus.Counter

	// Compute job pipeline
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueRejected  prometheus.Counter
	jobsCoalesced  prometheus.Counter
	workerCount    prometheus.Gauge
	workerLatency  prometheus.Histogram
	workerFailures prometheus.Counter

	// Stories cache
	cacheLookups *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry, no default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "captionboard",
		subsystem:        "contest",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval reports how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.captionsSubmitted = m.counter("captions_submitted_total", "Captions accepted and persisted")
	m.scoresApplied = m.counter("scores_applied_total", "Caption records whose score was replaced by a scoring pass")
	m.leaderboardReads = m.counter("leaderboard_reads_total", "Leaderboard queries served")

	m.storageReadLatency = m.histogramVec("storage_read_latency_milliseconds", "Latency of per-day file reads", "file")
	m.storageWriteLatency = m.histogramVec("storage_write_latency_milliseconds", "Latency of per-day file replacements", "file")
	m.storageErrors = m.counterVec("storage_errors_total", "Storage failures by file and kind", "file", "kind")
	m.writeConflicts = m.counter("storage_write_conflicts_total", "Versioned writes rejected because the file changed underneath")

	m.computeRuns = m.counterVec("compute_runs_total", "Scoring passes by outcome", "outcome")
	m.computeLatency = m.histogram("compute_latency_milliseconds", "End-to-end latency of a scoring pass")
	m.computeRetries = m.counter("compute_retries_total", "Retried calls to the scoring collaborator")

	m.queueSize = m.gauge("queue_size", "Pending compute jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Compute job queue capacity")
	m.queueRejected = m.counter("queue_rejected_total", "Compute jobs rejected by backpressure")
	m.jobsCoalesced = m.counter("jobs_coalesced_total", "Compute triggers folded into an already pending job")
	m.workerCount = m.gauge("worker_count", "Compute workers running")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job")
	m.workerFailures = m.counter("worker_failures_total", "Compute jobs that ended in error")

	m.cacheLookups = m.counterVec("cache_lookups_total", "Stories cache lookups by result", "cache", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint and class", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
}

// RecordCaptionSubmitted counts a persisted submission.
func RecordCaptionSubmitted() { globalManager.captionsSubmitted.Inc() }

// RecordScoresApplied counts records rewritten by a score update.
func RecordScoresApplied(n int) { globalManager.scoresApplied.Add(float64(n)) }

// RecordLeaderboardRead counts a served leaderboard query.
func RecordLeaderboardRead() { globalManager.leaderboardReads.Inc() }

// RecordStorageRead observes a file read.
func RecordStorageRead(file string, d time.Duration) {
	globalManager.storageReadLatency.WithLabelValues(file).Observe(ms(d))
}

// RecordStorageWrite observes a file replacement.
func RecordStorageWrite(file string, d time.Duration) {
	globalManager.storageWriteLatency.WithLabelValues(file).Observe(ms(d))
}

// RecordStorageError counts a storage failure; kind is "parse", "read" or "write".
func RecordStorageError(file, kind string) {
	globalManager.storageErrors.WithLabelValues(file, kind).Inc()
}

// RecordWriteConflict counts a rejected versioned write.
func RecordWriteConflict() { globalManager.writeConflicts.Inc() }

// RecordCompute observes a scoring pass; outcome is "success", "upstream_error"
// or "storage_error".
func RecordCompute(outcome string, d time.Duration) {
	globalManager.computeRuns.WithLabelValues(outcome).Inc()
	globalManager.computeLatency.Observe(ms(d))
}

// RecordComputeRetry counts one retried collaborator call.
func RecordComputeRetry() { globalManager.computeRetries.Inc() }

// UpdateQueueSize sets the pending job gauge.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueRejected counts a job refused by backpressure.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// RecordJobCoalesced counts a trigger absorbed by a pending job.
func RecordJobCoalesced() { globalManager.jobsCoalesced.Inc() }

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerJob observes one processed job.
func RecordWorkerJob(d time.Duration, failed bool) {
	globalManager.workerLatency.Observe(ms(d))
	if failed {
		globalManager.workerFailures.Inc()
	}
}

// RecordCacheLookup counts a cache lookup; result is "hit", "miss" or "stale".
func RecordCacheLookup(cache, result string) {
	globalManager.cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms(d))
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the private registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval reports the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
