// Package metrics provides Prometheus metrics for the eatery catalogue service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultLatencyBuckets are millisecond buckets from 0.5ms to about 8s.
var DefaultLatencyBuckets = prometheus.ExponentialBuckets(0.5, 2, 15) //nolint:gochecknoglobals // read-only defaults

// DefaultNearbyBuckets cover result sizes from 1 to 512.
var DefaultNearbyBuckets = prometheus.ExponentialBuckets(1, 2, 10) //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	nearbyBuckets  []float64
	enabled        bool
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Catalogue size
	restaurantsTotal prometheus.Gauge
	usersTotal       prometheus.Gauge

	// Domain operations
	restaurantsCreated prometheus.Counter
	usersCreated       prometheus.Counter
	slugConflicts      prometheus.Counter
	nearbyResults      prometheus.Histogram
	referencesPulled   prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store Metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Error tracking
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:      "eatery",
		subsystem:      "catalogue",
		latencyBuckets: DefaultLatencyBuckets,
		nearbyBuckets:  DefaultNearbyBuckets,
		enabled:        true,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// GetRegistry returns the registry the global manager publishes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.restaurantsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("restaurants_total"),
		Help:        "Number of restaurant documents in the store",
		ConstLabels: labels,
	})

	m.usersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("users_total"),
		Help:        "Number of user documents in the store",
		ConstLabels: labels,
	})

	m.restaurantsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("restaurants_created_total"),
		Help:        "Restaurants written by single and bulk inserts",
		ConstLabels: labels,
	})

	m.usersCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("users_created_total"),
		Help:        "Users written by single and bulk inserts",
		ConstLabels: labels,
	})

	m.slugConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("slug_conflicts_total"),
		Help:        "Restaurant writes rejected because the derived uniqueName already exists",
		ConstLabels: labels,
	})

	m.nearbyResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("nearby_results"),
		Help:        "Number of restaurants returned by radius queries",
		Buckets:     m.nearbyBuckets,
		ConstLabels: labels,
	})

	m.referencesPulled = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("managed_references_pulled_total"),
		Help:        "User documents modified by cascading restaurant deletes",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("store_operation_duration_milliseconds"),
			Help:        "Document store call latency by collection and operation",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"collection", "operation"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("store_errors_total"),
			Help:        "Document store call failures by collection, operation and kind",
			ConstLabels: labels,
		},
		[]string{"collection", "operation", "kind"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Errors by type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Errors by HTTP endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_usage_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutines"),
		Help:        "Number of live goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("gc_pause_milliseconds"),
		Help:        "Average GC pause in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})
}

// Catalogue Metrics Functions.

// UpdateRestaurantsTotal sets the restaurant document count.
func UpdateRestaurantsTotal(count int64) {
	if globalManager.enabled {
		globalManager.restaurantsTotal.Set(float64(count))
	}
}

// UpdateUsersTotal sets the user document count.
func UpdateUsersTotal(count int64) {
	if globalManager.enabled {
		globalManager.usersTotal.Set(float64(count))
	}
}

// RecordRestaurantsCreated adds n to the restaurants created counter.
func RecordRestaurantsCreated(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.restaurantsCreated.Add(float64(n))
	}
}

// RecordUsersCreated adds n to the users created counter.
func RecordUsersCreated(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.usersCreated.Add(float64(n))
	}
}

// RecordSlugConflict increments the slug conflict counter.
func RecordSlugConflict() {
	if globalManager.enabled {
		globalManager.slugConflicts.Inc()
	}
}

// RecordNearbyResults observes the size of a radius query result.
func RecordNearbyResults(n int) {
	if globalManager.enabled {
		globalManager.nearbyResults.Observe(float64(n))
	}
}

// RecordReferencesPulled adds n to the cascade counter.
func RecordReferencesPulled(n int64) {
	if globalManager.enabled && n > 0 {
		globalManager.referencesPulled.Add(float64(n))
	}
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByType increments errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint increments errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// Store Metrics Functions.

// RecordStoreLatency records a store call latency in milliseconds.
func RecordStoreLatency(collection, operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(collection, operation).Observe(latencyMs)
	}
}

// RecordStoreError increments the store error counter.
func RecordStoreError(collection, operation, kind string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(collection, operation, kind).Inc()
	}
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}
