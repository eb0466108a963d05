package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimitRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_requests_total",
		Help: "Rate limit decisions by scope and result",
	}, []string{"scope", "result"})

	rateLimitRedisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Rate limit checks that could not reach Redis",
	})
)

func RecordRateLimit(scope string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "blocked"
	}
	rateLimitRequestsTotal.WithLabelValues(scope, result).Inc()
}

func RecordRedisError() {
	rateLimitRedisErrorsTotal.Inc()
}
