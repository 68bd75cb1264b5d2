package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/i18n"
	"github.com/guttosm/shell-cache/internal/logger"
)

// ErrorHandler returns a middleware that handles gin context errors.
// Handlers may attach an HTTP status as the error's Meta; anything else
// is reported as 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		requestID := GetRequestID(c)

		status := http.StatusInternalServerError
		if s, ok := err.Meta.(int); ok && s >= 400 {
			status = s
		}

		log := logger.Logger()
		log.Error().
			Str("request_id", requestID).
			Err(err.Err).
			Int("status_code", status).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("Request error")

		if !c.Writer.Written() {
			message := i18n.T(c, i18n.ErrKeyInternalError)
			if status < 500 {
				message = err.Error()
			}
			c.JSON(status, dto.NewError(dto.ErrCodeFromStatus(status), message).WithRequestID(requestID))
		}
	}
}
