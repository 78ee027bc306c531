package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FreeMenuItemLimit is the menu item cap on the synthetic Free plan.
const FreeMenuItemLimit = 25

// PlanSummary is the plan view embedded in a resolved status.
type PlanSummary struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	PriceCents int64        `json:"price_cents"`
	Interval   string       `json:"interval"`
}

// FeatureLimit pairs live usage with the plan cap for one limit key.
type FeatureLimit struct {
	Current int64  `json:"current"`
	Max     int64  `json:"max"`
	Unit    string `json:"unit"`
}

// BillingInfo describes the current billing window.
type BillingInfo struct {
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
	AmountCents        int64     `json:"amount_cents"`
	Currency           string    `json:"currency"`
}

// TrialInfo is present only when the subscription ever had a trial window.
type TrialInfo struct {
	InTrial       bool      `json:"in_trial"`
	TrialStart    time.Time `json:"trial_start"`
	TrialEnd      time.Time `json:"trial_end"`
	DaysRemaining int       `json:"days_remaining"`
}

// Status is the resolved entitlement for one account: the answer to "what
// can this account do right now". It is recomputed on every resolve.
type Status struct {
	Active   bool                    `json:"active"`
	State    SubscriptionStatus      `json:"state"`
	Plan     PlanSummary             `json:"plan"`
	Features map[string]bool         `json:"features"`
	Limits   map[string]FeatureLimit `json:"limits"`
	Billing  BillingInfo             `json:"billing"`
	Trial    *TrialInfo              `json:"trial,omitempty"`
}

// HasFeature reports whether the feature key is enabled on the plan.
func (s Status) HasFeature(key string) bool {
	return s.Features[key]
}

// Limit looks up the cap for one limit key.
func (s Status) Limit(key string) (FeatureLimit, bool) {
	l, ok := s.Limits[key]
	return l, ok
}

// IsFree reports whether the status is the synthetic Free fallback.
func (s Status) IsFree() bool {
	return s.Plan.ID == 0
}

// TrialExpired reports a trial-state subscription whose trial window has
// closed without converting.
func (s Status) TrialExpired() bool {
	return s.State == StatusTrialing && s.Trial != nil && !s.Trial.InTrial
}

// TrialDaysRemaining returns the trial countdown, zero when no trial exists.
func (s Status) TrialDaysRemaining() int {
	if s.Trial == nil {
		return 0
	}
	return s.Trial.DaysRemaining
}

// FreeStatus builds the synthetic Free entitlement. It is the fallback for
// accounts without a live subscription and for resolver read failures.
func FreeStatus(now time.Time) Status {
	start := now.UTC()
	return Status{
		Active: true,
		State:  StatusActive,
		Plan: PlanSummary{
			ID:         0,
			Name:       "Free",
			PriceCents: 0,
			Interval:   "monthly",
		},
		Features: map[string]bool{
			"basic_features": true,
		},
		Limits: map[string]FeatureLimit{
			"menu_items": {Current: 0, Max: FreeMenuItemLimit, Unit: "items"},
		},
		Billing: BillingInfo{
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   start.Add(30 * 24 * time.Hour),
			CancelAtPeriodEnd:  false,
			AmountCents:        0,
			Currency:           "usd",
		},
		Trial: nil,
	}
}
