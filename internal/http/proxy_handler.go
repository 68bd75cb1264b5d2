package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/i18n"
	"github.com/guttosm/shell-cache/internal/middleware"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/service"
)

// CacheHeader reports how a proxied request was answered: hit, miss or
// bypass.
const CacheHeader = "X-Cache"

// ProxyHandler answers every request that no other route claims by
// passing it through the active cache generation.
type ProxyHandler struct {
	registration *service.Registration
	forwardHosts []string
}

// NewProxyHandler creates a new ProxyHandler. Absolute-form requests for
// hosts other than the page origin are only forwarded when listed in
// forwardHosts.
func NewProxyHandler(registration *service.Registration, forwardHosts []string) *ProxyHandler {
	return &ProxyHandler{registration: registration, forwardHosts: forwardHosts}
}

// Handle proxies the request to the page origin, or to the absolute URL
// when the client used the server as a forward proxy for an allowed host.
func (h *ProxyHandler) Handle(c *gin.Context) {
	builder := NewResponseBuilder(c)
	ctx := c.Request.Context()

	if p := c.Request.URL.Path; p == AdminPrefix || strings.HasPrefix(p, AdminPrefix+"/") {
		builder.Error(http.StatusNotFound, i18n.ErrKeyRouteNotFound, nil)
		return
	}

	target := network.Target(h.registration.Origin(), c.Request.URL)
	if !network.ForwardAllowed(target, h.registration.Origin(), h.forwardHosts) {
		builder.Error(http.StatusForbidden, i18n.ErrKeyTargetNotAllowed, nil)
		return
	}
	out, err := network.OutboundRequest(ctx, c.Request, target)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyNotForwardable, err)
		return
	}

	snap, outcome, err := h.registration.Serve(ctx, out)
	middleware.SetCacheOutcome(c, string(outcome))
	c.Header(CacheHeader, string(outcome))

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			c.Abort()
			return
		}
		builder.Error(http.StatusBadGateway, i18n.ErrKeyOriginUnreachable, err)
		return
	}

	writeSnapshot(c, snap)
}

// writeSnapshot replays a buffered response.
func writeSnapshot(c *gin.Context, snap *model.Snapshot) {
	header := c.Writer.Header()
	for k, values := range snap.Header {
		if k == CacheHeader {
			continue
		}
		header[k] = append([]string(nil), values...)
	}
	c.Data(snap.Status, snap.Header.Get("Content-Type"), snap.Body)
}
