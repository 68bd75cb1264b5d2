package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/circuitbreaker"
	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/repository"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

func openBreaker(t *testing.T) *circuitbreaker.CircuitBreaker {
	t.Helper()
	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
		Name:             "test",
	})
	err := cb.Execute(context.Background(), func() error { return errors.New("down") })
	require.Error(t, err)
	require.True(t, cb.IsOpen())
	return cb
}

func TestHealthHandler_Readiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupHandler   func(t *testing.T) *HealthHandler
		expectedStatus int
		expectedChecks map[string]string
	}{
		{
			name: "readiness check no checkers",
			setupHandler: func(*testing.T) *HealthHandler {
				return NewHealthHandler()
			},
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"service": "ok"},
		},
		{
			name: "storage reachable and closed breaker",
			setupHandler: func(*testing.T) *HealthHandler {
				handler := NewHealthHandler()
				handler.RegisterChecker("storage", NewStorageChecker(repository.NewMemoryStorage()))
				handler.RegisterCircuitBreaker("origin", circuitbreaker.New(circuitbreaker.DefaultConfig()))
				return handler
			},
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"storage": "ok", "origin_circuit": "closed"},
		},
		{
			name: "failing checker",
			setupHandler: func(*testing.T) *HealthHandler {
				handler := NewHealthHandler()
				handler.RegisterChecker("storage", checkerFunc(func(context.Context) error {
					return errors.New("connection refused")
				}))
				return handler
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"storage": "connection refused"},
		},
		{
			name: "open breaker",
			setupHandler: func(t *testing.T) *HealthHandler {
				handler := NewHealthHandler()
				handler.RegisterCircuitBreaker("origin", openBreaker(t))
				return handler
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"origin_circuit": "open"},
		},
		{
			name: "nil breaker ignored",
			setupHandler: func(*testing.T) *HealthHandler {
				handler := NewHealthHandler()
				handler.RegisterCircuitBreaker("mongodb", nil)
				return handler
			},
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"service": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			tt.setupHandler(t).Register(router)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp dto.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedChecks, resp.Checks)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "ok", resp.Status)
			} else {
				assert.Equal(t, "degraded", resp.Status)
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHealthHandler().Register(router)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
