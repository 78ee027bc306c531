package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	FindByStripePriceID(ctx context.Context, db *gorm.DB, priceID string) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, onlyActive bool) ([]Plan, error)
	ListFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]PlanFeature, error)
	ReplaceFeatures(ctx context.Context, db *gorm.DB, planID snowflake.ID, features []PlanFeature) error
}
