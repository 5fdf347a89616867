// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	FetchRequests   *prometheus.CounterVec
	FetchRetries    *prometheus.CounterVec
	FetchRateLimits *prometheus.CounterVec
	FetchExhausted  *prometheus.CounterVec
	FetchLatency    *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec

	// Collector metrics
	ProtocolsProcessed *prometheus.CounterVec
	BatchesCompleted   prometheus.Counter
	CheckpointsWritten prometheus.Counter
	HistoricalRows     prometheus.Gauge

	// Transform metrics
	RowsNormalized *prometheus.CounterVec
	FilesSkipped   *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "defi_bi_etl"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		FetchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of upstream GET requests by host and status code",
		}, []string{"host", "status"}),
		FetchRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of retried upstream requests by host",
		}, []string{"host"}),
		FetchRateLimits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "rate_limited_total",
			Help:      "Total number of HTTP 429 responses by host",
		}, []string{"host"}),
		FetchExhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "exhausted_total",
			Help:      "Total number of requests that failed after all attempts",
		}, []string{"host"}),
		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "request_latency_seconds",
			Help:      "Upstream request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}),

		ProtocolsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "protocols_processed_total",
			Help:      "Protocols processed by the historical TVL collector by outcome",
		}, []string{"outcome"}),
		BatchesCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "batches_completed_total",
			Help:      "Total number of completed collector batches",
		}),
		CheckpointsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "checkpoints_written_total",
			Help:      "Total number of checkpoint files written",
		}),
		HistoricalRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "accumulated_rows",
			Help:      "Rows accumulated by the running collector",
		}),

		RowsNormalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "rows_normalized_total",
			Help:      "Rows produced by normalizers by table",
		}, []string{"table"}),
		FilesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "files_skipped_total",
			Help:      "Raw files skipped during transform by kind",
		}, []string{"kind"}),

		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"phase"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordFetch records a completed upstream request. status 0 means a transport error.
func RecordFetch(host string, status int, latency time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	DefaultMetrics.FetchRequests.WithLabelValues(host, label).Inc()
	DefaultMetrics.FetchLatency.WithLabelValues(host).Observe(latency.Seconds())
}

// RecordFetchRetry records a retry against host.
func RecordFetchRetry(host string) {
	DefaultMetrics.FetchRetries.WithLabelValues(host).Inc()
}

// RecordRateLimited records an HTTP 429 from host.
func RecordRateLimited(host string) {
	DefaultMetrics.FetchRateLimits.WithLabelValues(host).Inc()
}

// RecordFetchExhausted records a request that ran out of attempts.
func RecordFetchExhausted(host string) {
	DefaultMetrics.FetchExhausted.WithLabelValues(host).Inc()
}

// RecordCacheLookup records a response cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordProtocol records one collector protocol outcome.
func RecordProtocol(outcome string) {
	DefaultMetrics.ProtocolsProcessed.WithLabelValues(outcome).Inc()
}

// RecordBatch records a completed collector batch and its checkpoint.
func RecordBatch(accumulatedRows int) {
	DefaultMetrics.BatchesCompleted.Inc()
	DefaultMetrics.CheckpointsWritten.Inc()
	DefaultMetrics.HistoricalRows.Set(float64(accumulatedRows))
}

// RecordRows records rows produced for a table.
func RecordRows(table string, n int) {
	DefaultMetrics.RowsNormalized.WithLabelValues(table).Add(float64(n))
}

// RecordFileSkipped records a raw file that could not be used.
func RecordFileSkipped(kind string) {
	DefaultMetrics.FilesSkipped.WithLabelValues(kind).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
	}
}
