package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aclamission/internal/logger"
)

// RequestLogger attaches a request-scoped logger to the request context and
// writes one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		ev := reqLog.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = reqLog.Error()
		case status >= http.StatusBadRequest:
			ev = reqLog.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Recovery turns a panic into a 500 and logs it.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		log.Error().Interface("panic", err).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
