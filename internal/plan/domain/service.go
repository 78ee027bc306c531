package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreatePlanFeatureRequest struct {
	FeatureKey string `json:"feature_key"`
	Enabled    bool   `json:"enabled"`
	Limit      *int64 `json:"limit,omitempty"`
	LimitUnit  string `json:"limit_unit,omitempty"`
}

type CreatePlanRequest struct {
	Name            string                     `json:"name"`
	Description     string                     `json:"description"`
	PriceCents      int64                      `json:"price_cents"`
	Currency        string                     `json:"currency"`
	Interval        BillingInterval            `json:"interval"`
	Features        []string                   `json:"features"`
	FeatureLimits   map[string]int64           `json:"feature_limits,omitempty"`
	TrialDays       int                        `json:"trial_days"`
	StripeProductID string                     `json:"stripe_product_id"`
	StripePriceID   string                     `json:"stripe_price_id"`
	FeatureRows     []CreatePlanFeatureRequest `json:"feature_rows"`
}

type UpdatePlanRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	PriceCents  *int64           `json:"price_cents,omitempty"`
	Interval    *BillingInterval `json:"interval,omitempty"`
	TrialDays   *int             `json:"trial_days,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

type Service interface {
	List(ctx context.Context, onlyActive bool) ([]Plan, error)
	Get(ctx context.Context, id snowflake.ID) (*Plan, error)
	GetFeatures(ctx context.Context, planID snowflake.ID) ([]PlanFeature, error)
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	Update(ctx context.Context, id snowflake.ID, req UpdatePlanRequest) (*Plan, error)
	Archive(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound        = errors.New("plan_not_found")
	ErrInvalidName     = errors.New("invalid_plan_name")
	ErrInvalidInterval = errors.New("invalid_billing_interval")
	ErrInvalidPrice    = errors.New("invalid_plan_price")
	ErrInvalidTrial    = errors.New("invalid_trial_days")
)
