package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
)

// CheckoutResult is the hosted checkout handle returned to the caller.
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// UpdateRequest is the mutable subset of a subscription exposed to callers.
type UpdateRequest struct {
	PlanID            *snowflake.ID `json:"plan_id,omitempty"`
	CancelAtPeriodEnd *bool         `json:"cancel_at_period_end,omitempty"`
}

// SyncResult reports what a provider sync changed.
type SyncResult struct {
	Success bool     `json:"success"`
	Changes []string `json:"changes"`
	Errors  []string `json:"errors"`
}

type Service interface {
	// Resolve returns the account's current entitlement. It never fails:
	// read errors degrade to the Free status.
	Resolve(ctx context.Context, accountID snowflake.ID) Status

	CreateCheckout(ctx context.Context, accountID, planID snowflake.ID) (*CheckoutResult, error)
	UpdateSubscription(ctx context.Context, providerSubID string, req UpdateRequest) (*Subscription, error)
	CancelSubscription(ctx context.Context, providerSubID string, immediate bool) (*Subscription, error)
	SyncWithStripe(ctx context.Context, providerSubID string) SyncResult
	HandleProviderEvent(ctx context.Context, event *billingdomain.Event) error
}
