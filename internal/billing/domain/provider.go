// Package domain defines the billing provider contract. The lifecycle
// manager talks to the provider through these types so the Stripe adapter
// stays swappable in tests.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// SubscriptionState is the provider-side subscription status.
type SubscriptionState string

const (
	StateActive   SubscriptionState = "active"
	StateTrialing SubscriptionState = "trialing"
	StatePastDue  SubscriptionState = "past_due"
	StateCanceled SubscriptionState = "canceled"
	StateUnpaid   SubscriptionState = "unpaid"
)

// Customer is a provider billing customer.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// CheckoutSessionRequest asks the provider for a hosted checkout page.
type CheckoutSessionRequest struct {
	CustomerID string
	PriceID    string
	TrialDays  int
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the provider checkout handle the caller redirects to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Subscription is the provider-side snapshot of a subscription. It is the
// single source of truth during sync and webhook handling.
type Subscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	State              SubscriptionState
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	Metadata           map[string]string
}

// UpdateParams is the mutable subset of a provider subscription.
type UpdateParams struct {
	PriceID           string
	CancelAtPeriodEnd *bool
}

// Provider is the outbound billing API surface.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateParams) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*Subscription, error)
}

// EventType is a normalized webhook event kind.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventPaymentFailed       EventType = "payment.failed"
)

// Event is a normalized provider webhook event.
type Event struct {
	ID             string
	Type           EventType
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
	RawPayload     []byte
}

// WebhookVerifier authenticates and decodes inbound provider webhooks.
type WebhookVerifier interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrProviderFailure  = errors.New("billing_provider_failure")
)
