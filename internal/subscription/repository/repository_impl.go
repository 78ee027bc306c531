// Package repository provides the gorm-backed subscription store.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/subscription/domain"
)

type subscriptionRepository struct{}

func NewSubscriptionRepository() domain.Repository {
	return &subscriptionRepository{}
}

func (r *subscriptionRepository) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

// UpdateVersioned writes the row only if nobody bumped the version since it
// was read.
func (r *subscriptionRepository) UpdateVersioned(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	currentVersion := sub.Version
	sub.Version++

	result := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, currentVersion).
		Updates(map[string]any{
			"plan_id":              sub.PlanID,
			"status":               sub.Status,
			"current_period_start": sub.CurrentPeriodStart,
			"current_period_end":   sub.CurrentPeriodEnd,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
			"canceled_at":          sub.CanceledAt,
			"trial_start":          sub.TrialStart,
			"trial_end":            sub.TrialEnd,
			"updated_at":           sub.UpdatedAt,
			"version":              sub.Version,
		})
	if result.Error != nil {
		sub.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		sub.Version = currentVersion
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *subscriptionRepository) FindLatestByAccountID(ctx context.Context, db *gorm.DB, accountID snowflake.ID, statuses []domain.SubscriptionStatus) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM subscriptions WHERE account_id = ? AND status IN ? ORDER BY created_at DESC, id DESC LIMIT 1`,
			accountID, statuses).
		Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByProviderID(ctx context.Context, db *gorm.DB, providerSubID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM subscriptions WHERE stripe_subscription_id = ?`, providerSubID).
		Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &sub, nil
}
