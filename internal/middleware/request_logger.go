package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/shell-cache/internal/logger"
)

// CacheOutcomeKey is the gin context key under which the proxy handler
// records how a request was answered.
const CacheOutcomeKey = "cache_outcome"

// SetCacheOutcome records the cache outcome for the request log.
func SetCacheOutcome(c *gin.Context, outcome string) {
	c.Set(CacheOutcomeKey, outcome)
}

// RequestLogger returns a middleware that logs HTTP request details in JSON format.
// It logs: request ID, method, path, status code, latency, IP, user agent
// and, for proxied requests, the cache outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		ctx := logger.Logger().With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", statusCode).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent())
		if outcome := c.GetString(CacheOutcomeKey); outcome != "" {
			ctx = ctx.Str("cache", outcome)
		}
		log := ctx.Logger()

		log.WithLevel(getLogLevel(statusCode)).Msg("HTTP request")
	}
}

// getLogLevel returns the log level based on HTTP status code.
func getLogLevel(statusCode int) zerolog.Level {
	switch {
	case statusCode >= 500:
		return zerolog.ErrorLevel
	case statusCode >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
