// Package http exposes the shell cache over HTTP: a catch-all proxy that
// serves page requests through the active cache generation, the /_cache
// admin API and the health and metrics endpoints.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/shell-cache/internal/metrics"
	"github.com/guttosm/shell-cache/internal/middleware"
)

// AdminPrefix is the path prefix of the admin API. Requests under it are
// never proxied.
const AdminPrefix = "/_cache"

// RouterConfig holds router configuration options.
type RouterConfig struct {
	RateLimit   int
	RateWindow  time.Duration
	APIKeys     map[string]bool
	CORSOrigins []string
	SwaggerUser string
	SwaggerPass string
}

// DefaultRouterConfig returns the default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimit:  100,
		RateWindow: time.Minute,
	}
}

// NewRouter creates and configures the Gin router.
func NewRouter(proxy *ProxyHandler, admin *AdminHandler, healthHandler *HealthHandler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		metrics.PrometheusMiddleware(),
		middleware.Compression(),
		middleware.RequestLogger(),
		middleware.ErrorHandler(),
	)

	registerInfrastructureRoutes(router, healthHandler, &cfg)

	api := router.Group(AdminPrefix)
	configureAdminMiddleware(api, &cfg)
	NewAdminRoutes(admin).RegisterRoutes(api)

	router.NoRoute(proxy.Handle)

	return router
}

// registerInfrastructureRoutes registers health, metrics, and documentation routes.
func registerInfrastructureRoutes(router *gin.Engine, healthHandler *HealthHandler, cfg *RouterConfig) {
	healthHandler.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger with optional basic auth
	if cfg.SwaggerUser != "" && cfg.SwaggerPass != "" {
		authorized := router.Group("/swagger", gin.BasicAuth(gin.Accounts{
			cfg.SwaggerUser: cfg.SwaggerPass,
		}))
		authorized.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	} else {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// configureAdminMiddleware sets up CORS, rate limiting and API key auth
// for the admin group. Proxied traffic is not limited.
func configureAdminMiddleware(api *gin.RouterGroup, cfg *RouterConfig) {
	api.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		api.Use(limiter.RateLimit())
	}

	if len(cfg.APIKeys) > 0 {
		api.Use(middleware.APIKeyAuth(cfg.APIKeys))
	}
}
