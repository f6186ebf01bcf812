package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts entity store calls by backend, operation and outcome.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culturetech_store_operations_total",
		Help: "Total entity store operations",
	}, []string{"backend", "operation", "outcome"})

	// StoreLatency records entity store latency by backend and operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "culturetech_store_latency_seconds",
		Help:    "Entity store latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// AuthzDenials counts rejected actions by action and outcome code.
	AuthzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culturetech_authz_denials_total",
		Help: "Total authorization denials",
	}, []string{"action", "code"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culturetech_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EventsPublished counts broadcast events by type and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culturetech_events_published_total",
		Help: "Total broadcast events published",
	}, []string{"event_type", "outcome"})
)

// ObserveStore records one store call.
func ObserveStore(backend, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreOperations.WithLabelValues(backend, operation, outcome).Inc()
	StoreLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
