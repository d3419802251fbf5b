// Package metrics provides Prometheus metrics for the stopwatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; engine and store calls are sub-millisecond
// on the happy path.
var defaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // bucket table

// Manager manages all Prometheus metrics for the stopwatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine metrics
	transitions        *prometheus.CounterVec
	invalidTransitions *prometheus.CounterVec
	eventsAdded        *prometheus.CounterVec
	eventsRemoved      prometheus.Counter

	// Cache metrics
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheRebuilds prometheus.Counter

	// Service metrics
	stopwatches        prometheus.Gauge
	leaderboardLatency prometheus.Histogram
	duplicateRequests  prometheus.Counter

	// Store metrics
	storeLatency *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stopwatch",
		subsystem:        "service",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.transitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transitions_total",
		Help:      "Accepted start, stop, resume and reset transitions",
	}, []string{"type"})

	m.invalidTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalid_transitions_total",
		Help:      "Rejected transitions by reason",
	}, []string{"reason"})

	m.eventsAdded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_added_total",
		Help:      "Events appended through AddEvent by type",
	}, []string{"type"})

	m.eventsRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_removed_total",
		Help:      "Events removed from a sequence",
	})

	m.cacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Duration queries answered from the cache",
	}, []string{"query"})

	m.cacheMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Duration queries that had to be computed",
	}, []string{"query"})

	m.cacheRebuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "rebuilds_total",
		Help:      "Cache rebuilds after the sequence changed",
	})

	m.stopwatches = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stopwatches",
		Help:      "Number of stopwatches currently held by the service",
	})

	m.leaderboardLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_latency_milliseconds",
		Help:      "Time spent ranking stopwatches for a leaderboard",
		Buckets:   m.histogramBuckets,
	})

	m.duplicateRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_requests_total",
		Help:      "Mutating requests rejected by their idempotency key",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "operation_latency_milliseconds",
		Help:      "Store operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"driver", "op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})
}

// RecordTransition counts an accepted transition.
func RecordTransition(kind string) {
	globalManager.transitions.WithLabelValues(kind).Inc()
}

// RecordInvalidTransition counts a rejected transition.
func RecordInvalidTransition(reason string) {
	globalManager.invalidTransitions.WithLabelValues(reason).Inc()
}

// RecordEventAdded counts an appended event.
func RecordEventAdded(eventType string) {
	globalManager.eventsAdded.WithLabelValues(eventType).Inc()
}

// RecordEventRemoved counts a removed event.
func RecordEventRemoved() {
	globalManager.eventsRemoved.Inc()
}

// RecordCacheHit counts a query served from the cache.
func RecordCacheHit(query string) {
	globalManager.cacheHits.WithLabelValues(query).Inc()
}

// RecordCacheMiss counts a query that was computed.
func RecordCacheMiss(query string) {
	globalManager.cacheMisses.WithLabelValues(query).Inc()
}

// RecordCacheRebuild counts a cache rebuild.
func RecordCacheRebuild() {
	globalManager.cacheRebuilds.Inc()
}

// UpdateStopwatchCount sets the number of stopwatches held.
func UpdateStopwatchCount(count int) {
	globalManager.stopwatches.Set(float64(count))
}

// RecordLeaderboardLatency records ranking latency in milliseconds.
func RecordLeaderboardLatency(latencyMs float64) {
	globalManager.leaderboardLatency.Observe(latencyMs)
}

// RecordDuplicateRequest counts a request rejected by its idempotency key.
func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(driver, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
