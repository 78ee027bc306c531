package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	accountrepo "github.com/dinehq/dinehq/internal/account/repository"
	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	planrepo "github.com/dinehq/dinehq/internal/plan/repository"
	"github.com/dinehq/dinehq/internal/subscription/domain"
	subscriptionrepo "github.com/dinehq/dinehq/internal/subscription/repository"
	"github.com/dinehq/dinehq/internal/usage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&plandomain.Plan{},
		&plandomain.PlanFeature{},
		&domain.Subscription{},
	))
	return db
}

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	registry *usage.Registry
	provider *fakeProvider
	svc      *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	registry := usage.NewRegistry(zap.NewNop())
	provider := &fakeProvider{subscriptions: make(map[string]*fakeProviderSub)}

	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Cfg:      config.Config{Environment: "test"},
		GenID:    node,
		Clock:    fc,
		Repo:     subscriptionrepo.NewSubscriptionRepository(),
		PlanRepo: planrepo.NewPlanRepository(),
		Accounts: accountrepo.NewAccountRepository(),
		Provider: provider,
		Usage:    registry,
	}).(*Service)

	return &testEnv{
		db:       db,
		node:     node,
		clock:    fc,
		registry: registry,
		provider: provider,
		svc:      svc,
	}
}

func (e *testEnv) createAccount(t *testing.T) *accountdomain.Account {
	t.Helper()
	account := &accountdomain.Account{
		ID:           e.node.Generate(),
		Email:        "owner@example.com",
		DisplayName:  "Owner",
		PasswordHash: "x",
		Role:         accountdomain.RoleOwner,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.db.Create(account).Error)
	return account
}

func (e *testEnv) createPlan(t *testing.T, name string, priceCents int64, features []string, menuItemLimit int64) *plandomain.Plan {
	t.Helper()
	featuresJSON, err := json.Marshal(features)
	require.NoError(t, err)

	plan := &plandomain.Plan{
		ID:            e.node.Generate(),
		Code:          name,
		Name:          name,
		PriceCents:    priceCents,
		Currency:      "usd",
		Interval:      plandomain.IntervalMonthly,
		Features:      datatypes.JSON(featuresJSON),
		StripePriceID: "price_" + name,
		Active:        true,
		CreatedAt:     e.clock.Now(),
		UpdatedAt:     e.clock.Now(),
	}
	require.NoError(t, e.db.Create(plan).Error)

	limit := menuItemLimit
	row := &plandomain.PlanFeature{
		ID:         e.node.Generate(),
		PlanID:     plan.ID,
		FeatureKey: "menu_items",
		Enabled:    true,
		Limit:      &limit,
		LimitUnit:  "items",
		CreatedAt:  e.clock.Now(),
	}
	require.NoError(t, e.db.Create(row).Error)
	return plan
}

func (e *testEnv) createSubscription(t *testing.T, accountID, planID snowflake.ID, status domain.SubscriptionStatus, mutate func(*domain.Subscription)) *domain.Subscription {
	t.Helper()
	now := e.clock.Now()
	sub := &domain.Subscription{
		ID:                   e.node.Generate(),
		AccountID:            accountID,
		PlanID:               planID,
		Status:               status,
		CurrentPeriodStart:   now.Add(-10 * 24 * time.Hour),
		CurrentPeriodEnd:     now.Add(20 * 24 * time.Hour),
		StripeSubscriptionID: "sub_" + e.node.Generate().String(),
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, e.db.Create(sub).Error)
	return sub
}

func TestResolveNoSubscriptionFallsBackToFree(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	status := env.svc.Resolve(context.Background(), account.ID)

	require.True(t, status.Active)
	require.True(t, status.IsFree())
	require.Equal(t, "Free", status.Plan.Name)
	require.Equal(t, int64(0), status.Plan.PriceCents)
	require.True(t, status.HasFeature("basic_features"))

	limit, ok := status.Limit("menu_items")
	require.True(t, ok)
	require.Equal(t, int64(0), limit.Current)
	require.Equal(t, int64(25), limit.Max)
	require.Equal(t, "items", limit.Unit)

	require.Equal(t, 30*24*time.Hour, status.Billing.CurrentPeriodEnd.Sub(status.Billing.CurrentPeriodStart))
	require.Nil(t, status.Trial)
}

func TestResolveReadFailureFallsBackToFree(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	require.NoError(t, env.db.Exec(`DROP TABLE subscriptions`).Error)

	status := env.svc.Resolve(context.Background(), account.ID)
	require.True(t, status.IsFree())
	require.True(t, status.Active)
}

func TestResolveActiveSubscription(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features", "online_ordering"}, 500)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	env.registry.Register("menu_items", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 42, nil
	})

	status := env.svc.Resolve(context.Background(), account.ID)

	require.True(t, status.Active)
	require.False(t, status.IsFree())
	require.Equal(t, plan.ID, status.Plan.ID)
	require.Equal(t, "Standard", status.Plan.Name)
	require.True(t, status.HasFeature("online_ordering"))
	require.False(t, status.HasFeature("multi_location"))

	limit, ok := status.Limit("menu_items")
	require.True(t, ok)
	require.Equal(t, int64(42), limit.Current)
	require.Equal(t, int64(500), limit.Max)

	require.Equal(t, int64(7900), status.Billing.AmountCents)
	require.Nil(t, status.Trial)
}

func TestResolveMissingCounterReportsZeroUsage(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Starter", 2900, []string{"basic_features"}, 100)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	status := env.svc.Resolve(context.Background(), account.ID)

	limit, ok := status.Limit("menu_items")
	require.True(t, ok)
	require.Equal(t, int64(0), limit.Current)
}

func TestResolvePlanLimitMapBackfillsMissingRows(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	require.NoError(t, env.db.Model(&plandomain.Plan{}).
		Where("id = ?", plan.ID).
		Update("feature_limits", datatypes.JSONMap{
			"staff_seats": int64(10),
			"menu_items":  int64(9999),
		}).Error)

	env.registry.Register("staff_seats", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 3, nil
	})

	status := env.svc.Resolve(context.Background(), account.ID)

	// staff_seats has no plan_features row and comes from the JSON map.
	limit, ok := status.Limit("staff_seats")
	require.True(t, ok)
	require.Equal(t, int64(3), limit.Current)
	require.Equal(t, int64(10), limit.Max)

	// menu_items has a row, and the row wins over the JSON map.
	limit, ok = status.Limit("menu_items")
	require.True(t, ok)
	require.Equal(t, int64(500), limit.Max)
	require.Equal(t, "items", limit.Unit)
}

func TestResolvePastDueIsInactive(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusPastDue, nil)

	status := env.svc.Resolve(context.Background(), account.ID)

	require.False(t, status.Active)
	require.False(t, status.IsFree())
	require.Equal(t, domain.StatusPastDue, status.State)
}

func TestResolveTrialMath(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)

	now := env.clock.Now()
	trialStart := now.Add(-2 * 24 * time.Hour)
	trialEnd := now.Add(5*24*time.Hour + 6*time.Hour)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusTrialing, func(sub *domain.Subscription) {
		sub.TrialStart = &trialStart
		sub.TrialEnd = &trialEnd
	})

	status := env.svc.Resolve(context.Background(), account.ID)

	require.True(t, status.Active)
	require.NotNil(t, status.Trial)
	require.True(t, status.Trial.InTrial)
	// 5 days 6 hours remaining rounds up to 6 whole days.
	require.Equal(t, 6, status.Trial.DaysRemaining)
	require.False(t, status.TrialExpired())
}

func TestResolveExpiredTrial(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)

	now := env.clock.Now()
	trialStart := now.Add(-20 * 24 * time.Hour)
	trialEnd := now.Add(-6 * 24 * time.Hour)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusTrialing, func(sub *domain.Subscription) {
		sub.TrialStart = &trialStart
		sub.TrialEnd = &trialEnd
	})

	status := env.svc.Resolve(context.Background(), account.ID)

	require.NotNil(t, status.Trial)
	require.False(t, status.Trial.InTrial)
	require.Equal(t, 0, status.Trial.DaysRemaining)
	require.True(t, status.TrialExpired())
}

func TestResolveNoTrialColumnsMeansNoTrialInfo(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	plan := env.createPlan(t, "Standard", 7900, []string{"basic_features"}, 500)
	env.createSubscription(t, account.ID, plan.ID, domain.StatusActive, nil)

	status := env.svc.Resolve(context.Background(), account.ID)
	require.Nil(t, status.Trial)
}

func TestResolveLatestSubscriptionWins(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	oldPlan := env.createPlan(t, "Starter", 2900, []string{"basic_features"}, 100)
	newPlan := env.createPlan(t, "Premium", 19900, []string{"basic_features", "multi_location"}, 5000)

	env.createSubscription(t, account.ID, oldPlan.ID, domain.StatusPastDue, func(sub *domain.Subscription) {
		sub.CreatedAt = env.clock.Now().Add(-48 * time.Hour)
	})
	env.createSubscription(t, account.ID, newPlan.ID, domain.StatusActive, nil)

	status := env.svc.Resolve(context.Background(), account.ID)

	require.True(t, status.Active)
	require.Equal(t, newPlan.ID, status.Plan.ID)
}
