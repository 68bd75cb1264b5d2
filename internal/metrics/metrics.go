// Package metrics provides Prometheus metrics collection for the shell cache.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// ServeTotal counts intercepted requests by outcome (hit, miss, bypass, error).
	ServeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shell_cache_serve_total",
			Help: "Total number of intercepted requests by cache outcome",
		},
		[]string{"outcome"},
	)

	// ServeDuration tracks time to answer an intercepted request.
	ServeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shell_cache_serve_duration_seconds",
			Help:    "Time to answer an intercepted request",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"outcome"},
	)

	// RefreshTotal counts background revalidations by result (stored, skipped, failed).
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shell_cache_refresh_total",
			Help: "Total number of background revalidations",
		},
		[]string{"result"},
	)

	// LifecycleTotal counts lifecycle events (install, activate, promote) by result.
	LifecycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shell_cache_lifecycle_total",
			Help: "Total number of lifecycle events",
		},
		[]string{"event", "result"},
	)

	// StoreOperationsTotal tracks store operations per backend.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shell_cache_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"backend", "operation", "result"},
	)

	// ActiveGeneration is 1 for the version currently serving.
	ActiveGeneration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shell_cache_active_generation",
			Help: "Generation currently serving requests (1 = active)",
		},
		[]string{"version"},
	)

	// CircuitBreakerState exposes circuit breaker state (0 closed, 1 open, 2 half-open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
// Requests that fell through to the proxy are labelled "proxy" to keep
// path cardinality bounded.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "proxy"
		}
		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordServe records the outcome and latency of one intercepted request.
func RecordServe(outcome string, duration time.Duration) {
	ServeTotal.WithLabelValues(outcome).Inc()
	ServeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRefresh records the result of a background revalidation.
func RecordRefresh(result string) {
	RefreshTotal.WithLabelValues(result).Inc()
}

// RecordLifecycle records a lifecycle event.
func RecordLifecycle(event string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LifecycleTotal.WithLabelValues(event, result).Inc()
}

// RecordStoreOperation records metrics for a store operation.
func RecordStoreOperation(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

// SetActiveGeneration marks version as the only active generation.
func SetActiveGeneration(version string) {
	ActiveGeneration.Reset()
	if version != "" {
		ActiveGeneration.WithLabelValues(version).Set(1)
	}
}

// SetCircuitBreakerState publishes a breaker's state.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
