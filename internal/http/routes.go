package http

import (
	"github.com/gin-gonic/gin"
)

// RouteGroup defines a group of routes that can be registered.
type RouteGroup interface {
	// RegisterRoutes registers routes to the given router group.
	RegisterRoutes(rg *gin.RouterGroup)
}

// AdminRoutes registers the cache admin API.
type AdminRoutes struct {
	handler *AdminHandler
}

// NewAdminRoutes creates a new AdminRoutes instance.
func NewAdminRoutes(handler *AdminHandler) *AdminRoutes {
	return &AdminRoutes{handler: handler}
}

// RegisterRoutes registers the admin endpoints on rg.
func (r *AdminRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", r.handler.Status)
	rg.GET("/stores", r.handler.Stores)
	rg.GET("/stores/:name/entries", r.handler.StoreEntries)
	rg.POST("/deploy", r.handler.Deploy)
	rg.POST("/promote", r.handler.Promote)
	rg.DELETE("/entries", r.handler.DeleteEntry)
}
