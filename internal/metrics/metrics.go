package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpc_client_requests_total",
			Help: "Total number of requests sent to the platform",
		},
		[]string{"operation", "outcome"}, // outcome: ok, auth, expired, network, not_found, validation
	)

	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpc_client_request_duration_seconds",
			Help:    "Platform request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"operation"},
	)

	ClientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpc_client_retries_total",
			Help: "Total number of retried platform calls",
		},
		[]string{"operation"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpc_session_token_refreshes_total",
			Help: "Total number of access token refreshes",
		},
		[]string{"reason", "status"}, // reason: proactive, expired; status: success, failed
	)

	WorkflowItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpc_workflow_items_total",
			Help: "Dataset items processed by batch workflows",
		},
		[]string{"workflow", "status"}, // status: success, failed
	)

	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpc_platform_http_request_duration_seconds",
			Help:    "Reference platform HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordClientRequest(operation, outcome string, duration time.Duration) {
	ClientRequests.WithLabelValues(operation, outcome).Inc()
	ClientRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func IncrementRetry(operation string) {
	ClientRetries.WithLabelValues(operation).Inc()
}

func RecordTokenRefresh(reason string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	TokenRefreshes.WithLabelValues(reason, status).Inc()
}

func RecordWorkflowItem(workflow string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	WorkflowItems.WithLabelValues(workflow, status).Inc()
}

func RecordPlatformRequest(method, path string, status int, duration time.Duration) {
	PlatformRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
