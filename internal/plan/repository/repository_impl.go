// Package repository provides the gorm-backed plan store.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/plan/domain"
)

type planRepository struct{}

func NewPlanRepository() domain.Repository {
	return &planRepository{}
}

func (r *planRepository) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) Update(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Save(plan).Error
}

func (r *planRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM plans WHERE id = ?`, id).
		Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &plan, nil
}

func (r *planRepository) FindByStripePriceID(ctx context.Context, db *gorm.DB, priceID string) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM plans WHERE stripe_price_id = ?`, priceID).
		Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, db *gorm.DB, onlyActive bool) ([]domain.Plan, error) {
	var plans []domain.Plan
	query := `SELECT * FROM plans`
	if onlyActive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY price_cents ASC`
	if err := db.WithContext(ctx).Raw(query).Scan(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) ListFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]domain.PlanFeature, error) {
	var features []domain.PlanFeature
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM plan_features WHERE plan_id = ? ORDER BY feature_key ASC`, planID).
		Scan(&features).Error
	if err != nil {
		return nil, err
	}
	return features, nil
}

func (r *planRepository) ReplaceFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID, features []domain.PlanFeature) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM plan_features WHERE plan_id = ?`, planID).Error; err != nil {
			return err
		}
		for i := range features {
			features[i].PlanID = planID
			if err := tx.Create(&features[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// IsNotFound reports whether err is the gorm missing-row sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
