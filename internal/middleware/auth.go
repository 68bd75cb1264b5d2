package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/i18n"
)

const (
	// APIKeyHeader is the HTTP header name for API key authentication.
	APIKeyHeader = "X-API-Key"
	// APIKeyQuery is the query parameter name for API key authentication.
	APIKeyQuery = "api_key"
)

// APIKeyAuth returns a middleware that validates API keys.
// It checks the X-API-Key header first, then falls back to api_key query parameter.
// If validKeys is nil or empty, authentication is disabled.
func APIKeyAuth(validKeys map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(validKeys) == 0 {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = c.Query(APIKeyQuery)
		}

		requestID := GetRequestID(c)

		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError(dto.ErrCodeUnauthorized, i18n.T(c, i18n.ErrKeyAPIKeyRequired)).WithRequestID(requestID))
			return
		}

		if !validKeys[key] {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewError(dto.ErrCodeUnauthorized, i18n.T(c, i18n.ErrKeyInvalidAPIKey)).WithRequestID(requestID))
			return
		}

		c.Next()
	}
}
