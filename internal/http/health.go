package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/repository"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker defines the interface for health check operations.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// StorageChecker reports whether the cache storage backend is reachable.
type StorageChecker struct {
	storage repository.CacheStorage
}

// NewStorageChecker creates a checker that pings storage.
func NewStorageChecker(storage repository.CacheStorage) *StorageChecker {
	return &StorageChecker{storage: storage}
}

// Check pings the backend.
func (s *StorageChecker) Check(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checkers        map[string]HealthChecker
	circuitBreakers map[string]*circuitbreaker.CircuitBreaker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checkers:        make(map[string]HealthChecker),
		circuitBreakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// RegisterChecker registers a dependency checked by readiness.
func (h *HealthHandler) RegisterChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// RegisterCircuitBreaker registers a circuit breaker for health monitoring.
func (h *HealthHandler) RegisterCircuitBreaker(name string, cb *circuitbreaker.CircuitBreaker) {
	if cb == nil {
		return
	}
	h.circuitBreakers[name] = cb
}

// Register registers health endpoints on the router.
func (h *HealthHandler) Register(router *gin.Engine) {
	router.GET("/healthz", h.Liveness)
	router.GET("/readyz", h.Readiness)
}

// Liveness reports that the process is up.
//
// @Summary      Liveness check
// @Tags         Health
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// Readiness reports degraded when a checker fails or a circuit breaker is
// not closed.
//
// @Summary      Readiness check
// @Description  Pings the storage backend and reports circuit breaker states
// @Tags         Health
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Failure      503 {object} dto.HealthResponse
// @Router       /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string)

	for name, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	for name, cb := range h.circuitBreakers {
		stats := cb.GetStats()
		checks[name+"_circuit"] = stats.State
		if !stats.IsHealthy {
			status = http.StatusServiceUnavailable
		}
	}

	if len(checks) == 0 {
		checks["service"] = "ok"
	}

	c.JSON(status, dto.HealthResponse{
		Status:    map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}
