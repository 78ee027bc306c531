// Package domain contains the plan catalog models.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingInterval is the plan billing cadence.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// Plan is a named subscription tier. The synthetic Free plan (ID 0) is never
// stored; it is produced by the entitlement resolver as a fallback.
type Plan struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code            string            `gorm:"type:text;uniqueIndex;not null" json:"code"`
	Name            string            `gorm:"type:text;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description"`
	PriceCents      int64             `gorm:"not null" json:"price_cents"`
	Currency        string            `gorm:"type:text;not null;default:usd" json:"currency"`
	Interval        BillingInterval   `gorm:"type:text;not null" json:"interval"`
	Features        datatypes.JSON    `gorm:"type:jsonb" json:"features"`
	FeatureLimits   datatypes.JSONMap `gorm:"type:jsonb" json:"feature_limits"`
	TrialDays       int               `gorm:"not null;default:0" json:"trial_days"`
	StripeProductID string            `gorm:"type:text" json:"stripe_product_id"`
	StripePriceID   string            `gorm:"type:text" json:"stripe_price_id"`
	Active          bool              `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// FeatureList decodes the stored JSON feature list. Malformed data decodes to
// an empty list rather than an error.
func (p Plan) FeatureList() []string {
	if len(p.Features) == 0 {
		return nil
	}
	var features []string
	if err := json.Unmarshal(p.Features, &features); err != nil {
		return nil
	}
	return features
}

// LimitMap decodes the stored JSON limit map (limit key to numeric cap).
// Non-numeric entries are skipped; malformed data decodes to an empty map.
func (p Plan) LimitMap() map[string]int64 {
	if len(p.FeatureLimits) == 0 {
		return nil
	}
	out := make(map[string]int64, len(p.FeatureLimits))
	for key, raw := range p.FeatureLimits {
		switch v := raw.(type) {
		case float64:
			out[key] = int64(v)
		case int64:
			out[key] = v
		case int:
			out[key] = int64(v)
		case json.Number:
			if n, err := v.Int64(); err == nil {
				out[key] = n
			}
		}
	}
	return out
}

// PlanFeature is a per-plan entitlement row: a boolean capability plus an
// optional numeric cap. Limit keys are data, not code.
type PlanFeature struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PlanID     snowflake.ID `gorm:"not null;index" json:"plan_id"`
	FeatureKey string       `gorm:"type:text;not null" json:"feature_key"`
	Enabled    bool         `gorm:"not null;default:true" json:"enabled"`
	Limit      *int64       `gorm:"column:feature_limit" json:"limit,omitempty"`
	LimitUnit  string       `gorm:"type:text" json:"limit_unit,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PlanFeature) TableName() string { return "plan_features" }
