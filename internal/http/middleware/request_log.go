package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

// RequestLog emits one structured line per request.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
