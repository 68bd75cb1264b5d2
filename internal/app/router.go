package app

import (
	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/http"
)

// RouterComponents holds router-related components.
type RouterComponents struct {
	ProxyHandler  *http.ProxyHandler
	AdminHandler  *http.AdminHandler
	HealthHandler *http.HealthHandler
	Config        http.RouterConfig
}

// InitializeRouter initializes HTTP handlers and router configuration.
func InitializeRouter(services *ServiceComponents, storage *StorageComponents, cfg config.Config) *RouterComponents {
	healthHandler := http.NewHealthHandler()
	healthHandler.RegisterChecker("storage", http.NewStorageChecker(storage.Storage))
	healthHandler.RegisterCircuitBreaker("origin", services.OriginCircuitBreaker)
	healthHandler.RegisterCircuitBreaker("mongodb", storage.CircuitBreaker)

	return &RouterComponents{
		ProxyHandler:  http.NewProxyHandler(services.Registration, cfg.Origin.ForwardHosts),
		AdminHandler:  http.NewAdminHandler(services.Registration),
		HealthHandler: healthHandler,
		Config: http.RouterConfig{
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow,
			APIKeys:     cfg.Auth.APIKeys,
			CORSOrigins: cfg.Server.CORSOrigins,
			SwaggerUser: cfg.Server.SwaggerUser,
			SwaggerPass: cfg.Server.SwaggerPass,
		},
	}
}
