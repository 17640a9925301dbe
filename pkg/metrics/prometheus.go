// Package metrics provides Prometheus metrics for the castle insights service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeLoaded  = "loaded"
	OutcomeMissing = "missing"
	OutcomeFailed  = "failed"
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
)

// Direction label values for websocket messages.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Manager manages all Prometheus metrics for the castle service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Dataset metrics
	datasetRows         prometheus.Gauge
	datasetColumns      prometheus.Gauge
	datasetLoadDuration prometheus.Histogram
	sourceAttempts      *prometheus.CounterVec
	coercionWarnings    *prometheus.CounterVec
	qualityFindings     *prometheus.CounterVec

	// Filter and aggregation metrics
	filterEvaluations     prometheus.Counter
	filterLatency         prometheus.Histogram
	filterMatchedRows     prometheus.Gauge
	dashboardComputations prometheus.Counter
	dashboardLatency      prometheus.Histogram
	recomputeSuperseded   prometheus.Counter
	chartRenders          *prometheus.CounterVec

	// Session metrics
	wsSessions prometheus.Gauge
	wsMessages *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "castle",
		subsystem:        "insights",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.datasetRows = m.gauge("dataset_rows", "Rows in the canonical dataset")
	m.datasetColumns = m.gauge("dataset_columns", "Columns in the canonical dataset")
	m.datasetLoadDuration = m.histogram("dataset_load_duration_milliseconds", "Time spent loading and normalizing the dataset")
	m.sourceAttempts = m.counterVec("source_attempts_total", "Data source candidates tried, by source kind and outcome", "source", "outcome")
	m.coercionWarnings = m.counterVec("coercion_warnings_total", "Cells that failed numeric coercion, by field", "field")
	m.qualityFindings = m.counterVec("data_quality_findings_total", "Rows flagged by data-quality checks, by kind", "kind")

	m.filterEvaluations = m.counter("filter_evaluations_total", "Filter states evaluated")
	m.filterLatency = m.histogram("filter_latency_milliseconds", "Filter evaluation latency in milliseconds")
	m.filterMatchedRows = m.gauge("filter_matched_rows", "Rows matched by the last evaluated filter")
	m.dashboardComputations = m.counter("dashboard_computations_total", "Dashboards computed")
	m.dashboardLatency = m.histogram("dashboard_latency_milliseconds", "Dashboard computation latency in milliseconds")
	m.recomputeSuperseded = m.counter("recompute_superseded_total", "Recomputations discarded because a newer filter state arrived")
	m.chartRenders = m.counterVec("chart_renders_total", "Charts rendered, by chart and outcome", "chart", "outcome")

	m.wsSessions = m.gauge("ws_sessions", "Open websocket sessions")
	m.wsMessages = m.counterVec("ws_messages_total", "Websocket messages, by direction", "direction")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and error type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "GC pause time in milliseconds")
}

// Dataset Metrics Functions.

// UpdateDatasetShape sets the row and column gauges.
func UpdateDatasetShape(rows, columns int) {
	globalManager.datasetRows.Set(float64(rows))
	globalManager.datasetColumns.Set(float64(columns))
}

// RecordDatasetLoadDuration records how long a load took.
func RecordDatasetLoadDuration(ms float64) {
	globalManager.datasetLoadDuration.Observe(ms)
}

// RecordSourceAttempt counts one data source candidate.
func RecordSourceAttempt(source, outcome string) {
	globalManager.sourceAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordCoercionWarnings adds n failed coercions for field.
func RecordCoercionWarnings(field string, n int) {
	globalManager.coercionWarnings.WithLabelValues(field).Add(float64(n))
}

// RecordQualityFindings adds n flagged rows of kind.
func RecordQualityFindings(kind string, n int) {
	globalManager.qualityFindings.WithLabelValues(kind).Add(float64(n))
}

// Filter Metrics Functions.

// RecordFilterEvaluation records one filter evaluation.
func RecordFilterEvaluation(latencyMs float64, matched int) {
	globalManager.filterEvaluations.Inc()
	globalManager.filterLatency.Observe(latencyMs)
	globalManager.filterMatchedRows.Set(float64(matched))
}

// RecordDashboardComputation records one dashboard computation.
func RecordDashboardComputation(latencyMs float64) {
	globalManager.dashboardComputations.Inc()
	globalManager.dashboardLatency.Observe(latencyMs)
}

// RecordRecomputeSuperseded counts a discarded stale recomputation.
func RecordRecomputeSuperseded() {
	globalManager.recomputeSuperseded.Inc()
}

// RecordChartRender counts a chart render attempt.
func RecordChartRender(chart, outcome string) {
	globalManager.chartRenders.WithLabelValues(chart, outcome).Inc()
}

// Session Metrics Functions.

// UpdateWSSessions adjusts the open session gauge by delta.
func UpdateWSSessions(delta int) {
	globalManager.wsSessions.Add(float64(delta))
}

// RecordWSMessage counts a websocket message.
func RecordWSMessage(direction string) {
	globalManager.wsMessages.WithLabelValues(direction).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
