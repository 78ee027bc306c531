package requestid

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const Header = "X-Request-ID"

type contextKey struct{}

// Middleware propagates an inbound request id or generates a ULID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(Header))
		if id == "" {
			id = ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
		}
		ctx := context.WithValue(c.Request.Context(), contextKey{}, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(Header, id)
		c.Next()
	}
}

// FromContext returns the request id, or empty when none was attached.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
