package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/subscription/domain"
)

// Resolve implements domain.Service. It derives the account's entitlement
// from the latest live subscription row. Accounts with no row and any read
// failure both land on the Free status, so the read path never blocks a
// request.
func (s *Service) Resolve(ctx context.Context, accountID snowflake.ID) domain.Status {
	now := s.clock.Now().UTC()

	sub, err := s.repo.FindLatestByAccountID(ctx, s.db, accountID, domain.ResolvableStatuses)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("entitlement lookup failed, serving free tier",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
		}
		return domain.FreeStatus(now)
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		s.log.Warn("plan lookup failed, serving free tier",
			zap.String("account_id", accountID.String()),
			zap.String("plan_id", sub.PlanID.String()),
			zap.Error(err),
		)
		return domain.FreeStatus(now)
	}

	features, limits := s.entitlements(ctx, accountID, plan)

	status := domain.Status{
		Active:   sub.Status == domain.StatusActive || sub.Status == domain.StatusTrialing,
		State:    sub.Status,
		Plan:     planSummary(plan),
		Features: features,
		Limits:   limits,
		Billing: domain.BillingInfo{
			CurrentPeriodStart: sub.CurrentPeriodStart,
			CurrentPeriodEnd:   sub.CurrentPeriodEnd,
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
			AmountCents:        plan.PriceCents,
			Currency:           plan.Currency,
		},
		Trial: trialInfo(sub, now),
	}
	return status
}

func planSummary(plan *plandomain.Plan) domain.PlanSummary {
	return domain.PlanSummary{
		ID:         plan.ID,
		Name:       plan.Name,
		PriceCents: plan.PriceCents,
		Interval:   string(plan.Interval),
	}
}

// entitlements assembles the feature and limit maps from the plan's JSON
// feature list plus its per-feature rows, with live usage filled in from the
// counter registry. Row lookup failure degrades to the JSON list alone.
func (s *Service) entitlements(ctx context.Context, accountID snowflake.ID, plan *plandomain.Plan) (map[string]bool, map[string]domain.FeatureLimit) {
	features := make(map[string]bool)
	limits := make(map[string]domain.FeatureLimit)

	for _, key := range plan.FeatureList() {
		features[key] = true
	}

	rows, err := s.planRepo.ListFeatures(ctx, s.db, plan.ID)
	if err != nil {
		s.log.Warn("plan feature rows unavailable",
			zap.String("plan_id", plan.ID.String()),
			zap.Error(err),
		)
		rows = nil
	}
	for _, row := range rows {
		features[row.FeatureKey] = row.Enabled
		if row.Limit != nil {
			limits[row.FeatureKey] = domain.FeatureLimit{
				Current: s.usage.Current(ctx, row.FeatureKey, accountID),
				Max:     *row.Limit,
				Unit:    row.LimitUnit,
			}
		}
	}

	// The plan's stored limit map backfills keys with no per-feature row.
	// Rows carry units, so they take precedence where both exist.
	for key, max := range plan.LimitMap() {
		if _, ok := limits[key]; ok {
			continue
		}
		limits[key] = domain.FeatureLimit{
			Current: s.usage.Current(ctx, key, accountID),
			Max:     max,
		}
	}
	return features, limits
}

// trialInfo maps the trial columns to TrialInfo. Nil when the subscription
// never had a trial. DaysRemaining counts whole days up, never below zero.
func trialInfo(sub *domain.Subscription, now time.Time) *domain.TrialInfo {
	if sub.TrialStart == nil {
		return nil
	}

	start := sub.TrialStart.UTC()
	end := start
	if sub.TrialEnd != nil {
		end = sub.TrialEnd.UTC()
	}

	inTrial := !now.Before(start) && !now.After(end)

	days := 0
	if inTrial {
		days = int(math.Ceil(end.Sub(now).Hours() / 24))
		if days < 0 {
			days = 0
		}
	}

	return &domain.TrialInfo{
		InTrial:       inTrial,
		TrialStart:    start,
		TrialEnd:      end,
		DaysRemaining: days,
	}
}
