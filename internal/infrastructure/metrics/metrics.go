package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sectify metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sectify",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "uploads_total",
			Help:      "Total track uploads",
		},
		[]string{"status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "upload_bytes_total",
			Help:      "Total plaintext bytes accepted for upload",
		},
	)

	PackagingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "hls_packaging_runs_total",
			Help:      "Total HLS packaging runs by outcome",
		},
		[]string{"status"},
	)

	PackagingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sectify",
			Name:      "hls_packaging_duration_seconds",
			Help:      "Time to package a track into an HLS ladder",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	KeyAliasOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "key_alias_operations_total",
			Help:      "Key-alias mint/resolve operations by result",
		},
		[]string{"operation", "result"},
	)

	AccessGrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "access_grants_total",
			Help:      "Access-grant decisions by operation and result",
		},
		[]string{"operation", "result"},
	)

	ReaperDeletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sectify",
			Name:      "reaper_deletions_total",
			Help:      "Total expired HLS segment files removed by the reaper",
		},
	)

	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sectify",
			Name:      "worker_queue_depth",
			Help:      "Current depth of the stream decode worker pool's input queue",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a track upload outcome.
func RecordUpload(status string, bytes int64) {
	UploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		UploadBytesTotal.Add(float64(bytes))
	}
}

// RecordPackaging records an HLS packaging run outcome and its duration.
func RecordPackaging(status string, durationSec float64) {
	PackagingRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		PackagingDuration.Observe(durationSec)
	}
}

// RecordKeyAliasOp records a key-alias mint or resolve operation.
func RecordKeyAliasOp(operation, result string) {
	KeyAliasOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordAccessGrant records an authz decision.
func RecordAccessGrant(operation, result string) {
	AccessGrantsTotal.WithLabelValues(operation, result).Inc()
}

// RecordReaperDeletions adds n expired segments to the reaper counter.
func RecordReaperDeletions(n int) {
	if n > 0 {
		ReaperDeletionsTotal.Add(float64(n))
	}
}
