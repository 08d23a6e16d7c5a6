package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autostack"

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 30},
		},
		[]string{"method", "route"},
	)

	// Calls to the analysis, generation and deployment services.
	DownstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downstream",
			Name:      "calls_total",
			Help:      "Total calls to downstream services",
		},
		[]string{"service", "operation", "outcome"},
	)

	DownstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downstream",
			Name:      "call_duration_seconds",
			Help:      "Downstream call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "operation"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "uploads_total",
			Help:      "Total uploaded source files",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "upload_bytes_total",
			Help:      "Total bytes of accepted uploads",
		},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total file store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	DeploymentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deployments",
			Name:      "transitions_total",
			Help:      "Deployment status transitions applied",
		},
		[]string{"to", "source"},
	)

	AnalysisReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyses",
			Name:      "reports_total",
			Help:      "Analysis status reports applied",
		},
		[]string{"status", "source"},
	)

	TierRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tier_rejections_total",
			Help:      "Requests rejected by a subscription tier gate",
		},
		[]string{"required_tier"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordDownstream records one downstream call. outcome is "ok" or "error".
func RecordDownstream(service, operation, outcome string, durationSec float64) {
	DownstreamCallsTotal.WithLabelValues(service, operation, outcome).Inc()
	DownstreamDuration.WithLabelValues(service, operation).Observe(durationSec)
}

// RecordUpload records an uploaded file
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.Add(float64(bytes))
	}
}

func RecordStorage(backend, operation, status string) {
	StorageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// RecordTransition counts a deployment status change; source is "api", "callback" or "reconcile".
func RecordTransition(to, source string) {
	DeploymentTransitionsTotal.WithLabelValues(to, source).Inc()
}

func RecordAnalysisReport(status, source string) {
	AnalysisReportsTotal.WithLabelValues(status, source).Inc()
}

func RecordTierRejection(required string) {
	TierRejectionsTotal.WithLabelValues(required).Inc()
}
