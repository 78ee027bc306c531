// Package domain contains the subscription models and the entitlement
// status types the rest of the application consumes.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SubscriptionStatus is the local mirror of the provider subscription state.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusUnpaid   SubscriptionStatus = "unpaid"
)

// Subscription is the local subscription row. The provider owns the truth;
// this row is a mirror kept current by sync and webhooks. Version guards
// concurrent writers.
type Subscription struct {
	ID                   snowflake.ID       `gorm:"primaryKey" json:"id"`
	AccountID            snowflake.ID       `gorm:"not null;index" json:"account_id"`
	PlanID               snowflake.ID       `gorm:"not null" json:"plan_id"`
	Status               SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	CurrentPeriodStart   time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `gorm:"not null" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time         `json:"canceled_at,omitempty"`
	TrialStart           *time.Time         `json:"trial_start,omitempty"`
	TrialEnd             *time.Time         `json:"trial_end,omitempty"`
	StripeSubscriptionID string             `gorm:"type:text;uniqueIndex;not null" json:"stripe_subscription_id"`
	Version              int64              `gorm:"not null;default:1" json:"-"`
	CreatedAt            time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// ResolvableStatuses are the states a row may be in and still be the
// account's live subscription for entitlement purposes. past_due is included
// so a lapsed account resolves to its real plan (inactive) instead of
// silently falling back to Free.
var ResolvableStatuses = []SubscriptionStatus{
	StatusActive,
	StatusTrialing,
	StatusPastDue,
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	// UpdateVersioned persists sub guarded by its current version; it
	// returns ErrVersionConflict when another writer got there first.
	UpdateVersioned(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindLatestByAccountID(ctx context.Context, db *gorm.DB, accountID snowflake.ID, statuses []SubscriptionStatus) (*Subscription, error)
	FindByProviderID(ctx context.Context, db *gorm.DB, providerSubID string) (*Subscription, error)
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrVersionConflict      = errors.New("subscription_version_conflict")
)
