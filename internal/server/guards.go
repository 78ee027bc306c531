package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireFeature guards an API endpoint behind a plan feature key. The
// response shapes here are a contract with the frontend; they are written
// verbatim rather than through the error middleware.
func (s *Server) RequireFeature(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := s.identityFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"success": false,
			})
			return
		}

		status := s.subscriptionSvc.Resolve(c.Request.Context(), identity.AccountID)
		if !status.HasFeature(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":           "Feature not available in your current plan",
				"success":         false,
				"requiredFeature": key,
				"currentPlan":     status.Plan.Name,
			})
			return
		}
		c.Next()
	}
}

// RequireUsageLimit guards a resource-creating endpoint behind a usage cap.
// Reaching the cap rejects: current == max means no room for one more.
func (s *Server) RequireUsageLimit(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := s.identityFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"success": false,
			})
			return
		}

		status := s.subscriptionSvc.Resolve(c.Request.Context(), identity.AccountID)
		limit, exists := status.Limit(key)
		if !exists {
			c.Next()
			return
		}

		if limit.Current >= limit.Max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":           fmt.Sprintf("Usage limit exceeded for %s", key),
				"success":         false,
				"limit":           limit.Max,
				"current":         limit.Current,
				"upgradeRequired": true,
			})
			return
		}
		c.Next()
	}
}
