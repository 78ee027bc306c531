package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinehq/dinehq/internal/authorization"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
)

func (s *Server) handleSubscriptionStatus(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	status := s.subscriptionSvc.Resolve(c.Request.Context(), identity.AccountID)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

type createCheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) handleCreateCheckout(c *gin.Context) {
	identity, _ := s.identityFromRequest(c)

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	planID, err := parseID(req.PlanID, "plan_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	checkout, err := s.subscriptionSvc.CreateCheckout(c.Request.Context(), identity.AccountID, planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"checkout": checkout})
}

type updateSubscriptionRequest struct {
	ProviderSubscriptionID string  `json:"provider_subscription_id"`
	PlanID                 *string `json:"plan_id,omitempty"`
	CancelAtPeriodEnd      *bool   `json:"cancel_at_period_end,omitempty"`
}

func (s *Server) handleUpdateSubscription(c *gin.Context) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	if req.ProviderSubscriptionID == "" {
		AbortWithError(c, newValidationError("provider_subscription_id", "required", "provider subscription id is required"))
		return
	}
	if !s.ownsSubscription(c, req.ProviderSubscriptionID) {
		return
	}

	update := subscriptiondomain.UpdateRequest{
		CancelAtPeriodEnd: req.CancelAtPeriodEnd,
	}
	if req.PlanID != nil {
		planID, err := parseID(*req.PlanID, "plan_id")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		update.PlanID = &planID
	}

	sub, err := s.subscriptionSvc.UpdateSubscription(c.Request.Context(), req.ProviderSubscriptionID, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

type cancelSubscriptionRequest struct {
	ProviderSubscriptionID string `json:"provider_subscription_id"`
	Immediate              bool   `json:"immediate"`
}

func (s *Server) handleCancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	if req.ProviderSubscriptionID == "" {
		AbortWithError(c, newValidationError("provider_subscription_id", "required", "provider subscription id is required"))
		return
	}
	if !s.ownsSubscription(c, req.ProviderSubscriptionID) {
		return
	}

	sub, err := s.subscriptionSvc.CancelSubscription(c.Request.Context(), req.ProviderSubscriptionID, req.Immediate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (s *Server) handleSyncSubscription(c *gin.Context) {
	if !s.authorizeAdmin(c, authorization.ObjectSubscription, authorization.ActionSubscriptionSync) {
		return
	}

	providerSubID := c.Param("providerSubID")
	if providerSubID == "" {
		AbortWithError(c, newValidationError("providerSubID", "required", "provider subscription id is required"))
		return
	}

	result := s.subscriptionSvc.SyncWithStripe(c.Request.Context(), providerSubID)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"result": result})
}

// ownsSubscription verifies the caller owns the subscription it is trying
// to mutate. Admins may act on any subscription.
func (s *Server) ownsSubscription(c *gin.Context, providerSubID string) bool {
	identity, ok := s.identityFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	if identity.IsAdmin() {
		return true
	}

	var accountID int64
	err := s.db.WithContext(c.Request.Context()).
		Raw(`SELECT account_id FROM subscriptions WHERE stripe_subscription_id = ?`, providerSubID).
		Scan(&accountID).Error
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	if accountID == 0 {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return false
	}
	if accountID != int64(identity.AccountID) {
		AbortWithError(c, ErrForbidden)
		return false
	}
	return true
}
