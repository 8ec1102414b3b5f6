// File: internal/metrics/prometheus.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the error tracker
type PrometheusMetrics struct {
	// Ingestion metrics
	ErrorsIngestedTotal *prometheus.CounterVec
	ErrorsRejectedTotal prometheus.Counter
	IngestDuration      prometheus.Histogram

	// Grouping metrics
	GroupsCreatedTotal  prometheus.Counter
	GroupConflictsTotal prometheus.Counter

	// Storage metrics
	StorageTimeoutsTotal prometheus.Counter

	// Alert metrics
	AlertsTriggeredTotal  *prometheus.CounterVec
	AlertsSuppressedTotal *prometheus.CounterVec
	ActiveAlertRules      prometheus.Gauge

	// Notification metrics
	NotificationsSentTotal    *prometheus.CounterVec
	NotificationFailuresTotal *prometheus.CounterVec
	NotificationDuration      *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Ingestion metrics
		ErrorsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_errors_ingested_total",
				Help: "Total number of error events ingested",
			},
			[]string{"error_type", "severity", "source"},
		),

		ErrorsRejectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "errtrack_errors_rejected_total",
				Help: "Total number of error events rejected by validation",
			},
		),

		IngestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "errtrack_ingest_duration_seconds",
				Help:    "Time spent ingesting individual error events",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Grouping metrics
		GroupsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "errtrack_groups_created_total",
				Help: "Total number of error groups created",
			},
		),

		GroupConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "errtrack_group_conflicts_total",
				Help: "Total number of fingerprint insert races lost and recovered",
			},
		),

		// Storage metrics
		StorageTimeoutsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "errtrack_storage_timeouts_total",
				Help: "Total number of storage operations that exceeded their deadline",
			},
		),

		// Alert metrics
		AlertsTriggeredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_alerts_triggered_total",
				Help: "Total number of alert rule firings",
			},
			[]string{"rule", "condition"},
		),

		AlertsSuppressedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_alerts_suppressed_total",
				Help: "Total number of alert firings suppressed by cooldown",
			},
			[]string{"rule", "condition"},
		),

		ActiveAlertRules: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "errtrack_active_alert_rules",
				Help: "Number of currently active alert rules",
			},
		),

		// Notification metrics
		NotificationsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_notifications_sent_total",
				Help: "Total number of notifications sent",
			},
			[]string{"channel"},
		),

		NotificationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_notification_failures_total",
				Help: "Total number of failed notification deliveries",
			},
			[]string{"channel"},
		),

		NotificationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "errtrack_notification_duration_seconds",
				Help:    "Duration of notification delivery",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errtrack_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "errtrack_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "errtrack_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "errtrack_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "errtrack_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "errtrack_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordErrorIngested records a successfully ingested error event
func (m *PrometheusMetrics) RecordErrorIngested(errorType, severity, source string, duration time.Duration) {
	m.ErrorsIngestedTotal.WithLabelValues(errorType, severity, source).Inc()
	m.IngestDuration.Observe(duration.Seconds())
}

// RecordErrorRejected records an event rejected by validation
func (m *PrometheusMetrics) RecordErrorRejected() {
	m.ErrorsRejectedTotal.Inc()
}

// RecordGroupCreated records a newly created error group
func (m *PrometheusMetrics) RecordGroupCreated() {
	m.GroupsCreatedTotal.Inc()
}

// RecordGroupConflict records a lost-and-recovered fingerprint insert race
func (m *PrometheusMetrics) RecordGroupConflict() {
	m.GroupConflictsTotal.Inc()
}

// RecordStorageTimeout records an expired storage deadline
func (m *PrometheusMetrics) RecordStorageTimeout() {
	m.StorageTimeoutsTotal.Inc()
}

// RecordAlertTriggered records an alert rule firing
func (m *PrometheusMetrics) RecordAlertTriggered(rule, condition string) {
	m.AlertsTriggeredTotal.WithLabelValues(rule, condition).Inc()
}

// RecordAlertSuppressed records a firing suppressed by cooldown
func (m *PrometheusMetrics) RecordAlertSuppressed(rule, condition string) {
	m.AlertsSuppressedTotal.WithLabelValues(rule, condition).Inc()
}

// UpdateActiveAlertRules updates the active rule count
func (m *PrometheusMetrics) UpdateActiveAlertRules(count int) {
	m.ActiveAlertRules.Set(float64(count))
}

// RecordNotificationSent records a delivered notification
func (m *PrometheusMetrics) RecordNotificationSent(channel string, duration time.Duration) {
	m.NotificationsSentTotal.WithLabelValues(channel).Inc()
	m.NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordNotificationFailure records a failed notification delivery
func (m *PrometheusMetrics) RecordNotificationFailure(channel string) {
	m.NotificationFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
