package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hikcloud_gateway_requests_total",
		Help: "Total number of device API requests by outcome",
	}, []string{"result"})

	GatewayRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hikcloud_gateway_request_duration_seconds",
		Help:    "Latency of device API requests that reached the network",
		Buckets: prometheus.DefBuckets,
	})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hikcloud_token_refresh_total",
		Help: "Total number of OAuth token refresh attempts",
	}, []string{"result"})

	DirectoryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camera_directory_operations_total",
		Help: "Total number of camera directory operations",
	}, []string{"op", "result"})

	StatusChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_status_checks_total",
		Help: "Total number of integration status checks by derived status",
	}, []string{"status"})

	CameraSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camera_sync_runs_total",
		Help: "Total number of camera sync runs",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "integration_sessions_active",
		Help: "Current number of cached integration sessions",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camera_events_published_total",
		Help: "Total number of camera status events by publish outcome",
	}, []string{"result"})
)

// Result maps a success flag to the label value used across counters.
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
