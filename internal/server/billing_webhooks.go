package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
)

const maxWebhookBody = 1 << 20

// handleStripeWebhook verifies the signature, normalizes the event, and
// hands it to the subscription service. Ignored event types are
// acknowledged so the provider stops retrying them.
func (s *Server) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if err := s.webhookVerifier.Verify(c.Request.Context(), payload, c.Request.Header); err != nil {
		s.log.Warn("webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := s.webhookVerifier.Parse(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, billingdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := s.subscriptionSvc.HandleProviderEvent(c.Request.Context(), event); err != nil {
		s.log.Error("webhook event failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
