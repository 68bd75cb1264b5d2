package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		allowed        []string
		method         string
		origin         string
		expectedStatus int
		expectedAllow  string
	}{
		{
			name:           "preflight from allowed origin",
			allowed:        []string{"https://admin.example.com"},
			method:         http.MethodOptions,
			origin:         "https://admin.example.com",
			expectedStatus: http.StatusNoContent,
			expectedAllow:  "https://admin.example.com",
		},
		{
			name:           "GET from allowed origin",
			allowed:        []string{"https://admin.example.com"},
			method:         http.MethodGet,
			origin:         "https://admin.example.com",
			expectedStatus: http.StatusOK,
			expectedAllow:  "https://admin.example.com",
		},
		{
			name:           "rejects unknown origin",
			allowed:        []string{"https://admin.example.com"},
			method:         http.MethodGet,
			origin:         "https://evil.example.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "defaults allow localhost",
			method:         http.MethodGet,
			origin:         "http://localhost:3000",
			expectedStatus: http.StatusOK,
			expectedAllow:  "http://localhost:3000",
		},
		{
			name:           "request without origin passes",
			allowed:        []string{"https://admin.example.com"},
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
