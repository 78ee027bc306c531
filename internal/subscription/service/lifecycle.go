package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/subscription/domain"
)

// CreateCheckout implements domain.Service. The provider owns subscription
// creation: this call only readies the customer and hands back the hosted
// checkout URL. The local row appears later via webhook or sync.
func (s *Service) CreateCheckout(ctx context.Context, accountID, planID snowflake.ID) (*domain.CheckoutResult, error) {
	plan, err := s.planRepo.FindByID(ctx, s.db, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanNotFound
	}

	account, err := s.accounts.FindByID(ctx, s.db, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, account.ID, account.Email, account.DisplayName, account.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billingdomain.CheckoutSessionRequest{
		CustomerID: customerID,
		PriceID:    plan.StripePriceID,
		TrialDays:  plan.TrialDays,
		SuccessURL: s.cfg.Stripe.CheckoutSuccessURL,
		CancelURL:  s.cfg.Stripe.CheckoutCancelURL,
		Metadata: map[string]string{
			"account_id": account.ID.String(),
			"plan_id":    plan.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session created",
		zap.String("account_id", account.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("session_id", session.ID),
	)
	return &domain.CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// ensureCustomer returns the account's provider customer id, creating and
// persisting one on first use.
func (s *Service) ensureCustomer(ctx context.Context, accountID snowflake.ID, email, name string, existing *string) (string, error) {
	if existing != nil && *existing != "" {
		return *existing, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, email, name, map[string]string{
		"account_id": accountID.String(),
	})
	if err != nil {
		return "", err
	}
	if err := s.accounts.SetStripeCustomerID(ctx, s.db, accountID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// UpdateSubscription implements domain.Service. The provider is updated
// first; the local mirror only moves once the provider accepted the change.
func (s *Service) UpdateSubscription(ctx context.Context, providerSubID string, req domain.UpdateRequest) (*domain.Subscription, error) {
	sub, err := s.repo.FindByProviderID(ctx, s.db, providerSubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}

	params := billingdomain.UpdateParams{
		CancelAtPeriodEnd: req.CancelAtPeriodEnd,
	}
	var targetPlan *plandomain.Plan
	if req.PlanID != nil {
		targetPlan, err = s.planRepo.FindByID(ctx, s.db, *req.PlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrPlanNotFound
			}
			return nil, err
		}
		if !targetPlan.Active {
			return nil, domain.ErrPlanNotFound
		}
		params.PriceID = targetPlan.StripePriceID
	}

	snapshot, err := s.provider.UpdateSubscription(ctx, providerSubID, params)
	if err != nil {
		return nil, err
	}

	if err := s.applySnapshot(ctx, sub, snapshot); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelSubscription implements domain.Service. Immediate cancellation ends
// access now; deferred keeps access until the paid window closes.
func (s *Service) CancelSubscription(ctx context.Context, providerSubID string, immediate bool) (*domain.Subscription, error) {
	sub, err := s.repo.FindByProviderID(ctx, s.db, providerSubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}

	snapshot, err := s.provider.CancelSubscription(ctx, providerSubID, !immediate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if immediate {
		sub.Status = domain.StatusCanceled
		sub.CanceledAt = &now
		sub.CancelAtPeriodEnd = false
	} else {
		sub.CancelAtPeriodEnd = true
	}
	if snapshot != nil {
		sub.CurrentPeriodStart = snapshot.CurrentPeriodStart
		sub.CurrentPeriodEnd = snapshot.CurrentPeriodEnd
	}
	sub.UpdatedAt = now

	if err := s.repo.UpdateVersioned(ctx, s.db, sub); err != nil {
		return nil, err
	}

	s.log.Info("subscription canceled",
		zap.String("provider_subscription_id", providerSubID),
		zap.Bool("immediate", immediate),
	)
	return sub, nil
}
