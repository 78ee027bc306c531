package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/subscription/domain"
)

type fakeProviderSub struct {
	sub billingdomain.Subscription
}

type fakeProvider struct {
	subscriptions map[string]*fakeProviderSub

	customersCreated int
	checkoutsCreated int
	failNext         error
}

func (f *fakeProvider) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*billingdomain.Customer, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	f.customersCreated++
	return &billingdomain.Customer{
		ID:    fmt.Sprintf("cus_%d", f.customersCreated),
		Email: email,
		Name:  name,
	}, nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req billingdomain.CheckoutSessionRequest) (*billingdomain.CheckoutSession, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	f.checkoutsCreated++
	return &billingdomain.CheckoutSession{
		ID:  fmt.Sprintf("cs_%d", f.checkoutsCreated),
		URL: "https://checkout.example.com/session",
	}, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*billingdomain.Subscription, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	entry, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, billingdomain.ErrProviderFailure
	}
	sub := entry.sub
	return &sub, nil
}

func (f *fakeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params billingdomain.UpdateParams) (*billingdomain.Subscription, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	entry, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, billingdomain.ErrProviderFailure
	}
	if params.PriceID != "" {
		entry.sub.PriceID = params.PriceID
	}
	if params.CancelAtPeriodEnd != nil {
		entry.sub.CancelAtPeriodEnd = *params.CancelAtPeriodEnd
	}
	sub := entry.sub
	return &sub, nil
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*billingdomain.Subscription, error) {
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	entry, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, billingdomain.ErrProviderFailure
	}
	if atPeriodEnd {
		entry.sub.CancelAtPeriodEnd = true
	} else {
		entry.sub.State = billingdomain.StateCanceled
	}
	sub := entry.sub
	return &sub, nil
}

func (e *testEnv) seedProviderSub(id, priceID string, state billingdomain.SubscriptionState, metadata map[string]string) {
	now := e.clock.Now()
	e.provider.subscriptions[id] = &fakeProviderSub{
		sub: billingdomain.Subscription{
			ID:                 id,
			CustomerID:         "cus_1",
			PriceID:            priceID,
			State:              state,
			CurrentPeriodStart: now.Add(-24 * time.Hour),
			CurrentPeriodEnd:   now.Add(29 * 24 * time.Hour),
			Metadata:           metadata,
		},
	}
}

func TestCreateCheckout(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)

	checkout, err := env.svc.CreateCheckout(context.Background(), account.ID, plan.ID)
	require.NoError(t, err)
	require.NotEmpty(t, checkout.SessionID)
	require.NotEmpty(t, checkout.URL)

	require.Equal(t, 1, env.provider.customersCreated)

	var customerID string
	require.NoError(t, env.db.Raw(`SELECT stripe_customer_id FROM accounts WHERE id = ?`, account.ID).Scan(&customerID).Error)
	require.Equal(t, "cus_1", customerID)

	var count int64
	require.NoError(t, env.db.Raw(`SELECT COUNT(*) FROM subscriptions`).Scan(&count).Error)
	require.Zero(t, count, "checkout must not create a local subscription row")
}

func TestCreateCheckoutReusesExistingCustomer(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)

	_, err := env.svc.CreateCheckout(context.Background(), account.ID, plan.ID)
	require.NoError(t, err)
	_, err = env.svc.CreateCheckout(context.Background(), account.ID, plan.ID)
	require.NoError(t, err)

	require.Equal(t, 1, env.provider.customersCreated)
	require.Equal(t, 2, env.provider.checkoutsCreated)
}

func TestCreateCheckoutUnknownPlan(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	_, err := env.svc.CreateCheckout(context.Background(), account.ID, env.node.Generate())
	require.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestCreateCheckoutUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)

	_, err := env.svc.CreateCheckout(context.Background(), env.node.Generate(), plan.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCancelImmediate(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)
	env.seedProviderSub(sub.StripeSubscriptionID, plan.StripePriceID, billingdomain.StateActive, nil)

	updated, err := env.svc.CancelSubscription(context.Background(), sub.StripeSubscriptionID, true)
	require.NoError(t, err)

	require.Equal(t, domain.StatusCanceled, updated.Status)
	require.NotNil(t, updated.CanceledAt)
	require.Equal(t, env.clock.Now(), updated.CanceledAt.UTC())
	require.False(t, updated.CancelAtPeriodEnd)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)
	env.seedProviderSub(sub.StripeSubscriptionID, plan.StripePriceID, billingdomain.StateActive, nil)

	updated, err := env.svc.CancelSubscription(context.Background(), sub.StripeSubscriptionID, false)
	require.NoError(t, err)

	require.Equal(t, domain.StatusActive, updated.Status)
	require.True(t, updated.CancelAtPeriodEnd)
	require.Nil(t, updated.CanceledAt)
}

func TestCancelProviderFailureLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	env.provider.failNext = errors.New("stripe down")
	_, err := env.svc.CancelSubscription(context.Background(), sub.StripeSubscriptionID, true)
	require.Error(t, err)

	var status string
	require.NoError(t, env.db.Raw(`SELECT status FROM subscriptions WHERE id = ?`, sub.ID).Scan(&status).Error)
	require.Equal(t, "active", status)
}

func TestUpdateProviderFailureLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	flag := true
	env.provider.failNext = errors.New("stripe down")
	_, err := env.svc.UpdateSubscription(context.Background(), sub.StripeSubscriptionID, domain.UpdateRequest{CancelAtPeriodEnd: &flag})
	require.Error(t, err)

	var cancelFlag bool
	require.NoError(t, env.db.Raw(`SELECT cancel_at_period_end FROM subscriptions WHERE id = ?`, sub.ID).Scan(&cancelFlag).Error)
	require.False(t, cancelFlag)
}

func TestUpdateCancelAtPeriodEnd(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)
	env.seedProviderSub(sub.StripeSubscriptionID, plan.StripePriceID, billingdomain.StateActive, nil)

	flag := true
	updated, err := env.svc.UpdateSubscription(context.Background(), sub.StripeSubscriptionID, domain.UpdateRequest{CancelAtPeriodEnd: &flag})
	require.NoError(t, err)
	require.True(t, updated.CancelAtPeriodEnd)
}

func TestSyncCreatesMissingRow(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	env.seedProviderSub("sub_new", plan.StripePriceID, billingdomain.StateActive, map[string]string{
		"account_id": account.ID.String(),
	})

	result := env.svc.SyncWithStripe(context.Background(), "sub_new")
	require.True(t, result.Success)
	require.Contains(t, result.Changes, "subscription created")

	row, err := env.svc.repo.FindByProviderID(context.Background(), env.db, "sub_new")
	require.NoError(t, err)
	require.Equal(t, account.ID, row.AccountID)
	require.Equal(t, plan.ID, row.PlanID)
	require.Equal(t, domain.StatusActive, row.Status)
}

func TestSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)
	env.seedProviderSub(sub.StripeSubscriptionID, plan.StripePriceID, billingdomain.StatePastDue, nil)

	first := env.svc.SyncWithStripe(context.Background(), sub.StripeSubscriptionID)
	require.True(t, first.Success)
	require.NotEmpty(t, first.Changes)

	second := env.svc.SyncWithStripe(context.Background(), sub.StripeSubscriptionID)
	require.True(t, second.Success)
	require.Empty(t, second.Changes)

	row, err := env.svc.repo.FindByProviderID(context.Background(), env.db, sub.StripeSubscriptionID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPastDue, row.Status)
}

func TestSyncProviderFailure(t *testing.T) {
	env := newTestEnv(t)

	env.provider.failNext = errors.New("stripe down")
	result := env.svc.SyncWithStripe(context.Background(), "sub_missing")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
}

func TestHandleProviderEventCreatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	env.seedProviderSub("sub_hook", plan.StripePriceID, billingdomain.StateTrialing, map[string]string{
		"account_id": account.ID.String(),
	})

	err := env.svc.HandleProviderEvent(context.Background(), &billingdomain.Event{
		ID:             "evt_1",
		Type:           billingdomain.EventCheckoutCompleted,
		SubscriptionID: "sub_hook",
	})
	require.NoError(t, err)

	row, err := env.svc.repo.FindByProviderID(context.Background(), env.db, "sub_hook")
	require.NoError(t, err)
	require.Equal(t, domain.StatusTrialing, row.Status)
}

func TestHandleProviderEventDeleted(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	sub := env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, func(sub *domain.Subscription) {
		sub.CancelAtPeriodEnd = true
	})

	err := env.svc.HandleProviderEvent(context.Background(), &billingdomain.Event{
		ID:             "evt_2",
		Type:           billingdomain.EventSubscriptionDeleted,
		SubscriptionID: sub.StripeSubscriptionID,
	})
	require.NoError(t, err)

	row, err := env.svc.repo.FindByProviderID(context.Background(), env.db, sub.StripeSubscriptionID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCanceled, row.Status)
	require.NotNil(t, row.CanceledAt)
	// A deferred cancel that ran its course must not leave the flag behind.
	require.False(t, row.CancelAtPeriodEnd)
}
