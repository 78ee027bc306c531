package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dinehq/dinehq/internal/requestid"
)

// GinMiddleware emits one structured access log entry per request.
func GinMiddleware(log *zap.Logger) gin.HandlerFunc {
	base := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestid.FromContext(c.Request.Context())),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		switch {
		case c.Writer.Status() >= 500:
			base.Error("request", fields...)
		case c.Writer.Status() >= 400:
			base.Warn("request", fields...)
		default:
			base.Info("request", fields...)
		}
	}
}
