package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Middleware guards one endpoint class with a shared token bucket, keyed by
// client IP. A nil limiter or redis failure lets the request through; the
// bucket protects capacity, it is not an auth boundary.
func Middleware(bucket *TokenBucket, log *zap.Logger, keyPrefix string, rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bucket == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.ClientIP())
		result, err := bucket.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", keyPrefix), zap.Error(err))
			c.Next()
			return
		}

		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"success": false,
			})
			return
		}
		c.Next()
	}
}
