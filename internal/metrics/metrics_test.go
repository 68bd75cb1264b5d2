package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "proxied")
	})

	tests := []struct {
		name           string
		path           string
		label          string
		expectedStatus int
	}{
		{
			name:           "records route path",
			path:           "/test",
			label:          "/test",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "collapses unrouted paths",
			path:           "/img/london-day.jpg",
			label:          "proxy",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(HTTPRequestTotal.WithLabelValues(http.MethodGet, tt.label, "200"))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			after := testutil.ToFloat64(HTTPRequestTotal.WithLabelValues(http.MethodGet, tt.label, "200"))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestRecordServe(t *testing.T) {
	before := testutil.ToFloat64(ServeTotal.WithLabelValues("hit"))

	RecordServe("hit", time.Millisecond)
	RecordServe("hit", 2*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(ServeTotal.WithLabelValues("hit")))
}

func TestRecordLifecycle(t *testing.T) {
	okBefore := testutil.ToFloat64(LifecycleTotal.WithLabelValues("install", "success"))
	errBefore := testutil.ToFloat64(LifecycleTotal.WithLabelValues("install", "error"))

	RecordLifecycle("install", nil)
	RecordLifecycle("install", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(LifecycleTotal.WithLabelValues("install", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(LifecycleTotal.WithLabelValues("install", "error")))
}

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "put", "success"))

	RecordStoreOperation("memory", "put", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "put", "success")))
}

func TestSetActiveGeneration(t *testing.T) {
	SetActiveGeneration("v1")
	SetActiveGeneration("v2")

	assert.Equal(t, 1.0, testutil.ToFloat64(ActiveGeneration.WithLabelValues("v2")))
	assert.Equal(t, 1, testutil.CollectAndCount(ActiveGeneration))
}
