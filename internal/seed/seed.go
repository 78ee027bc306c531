// Package seed bootstraps the default plan catalog and admin account so a
// fresh deployment is usable out of the box.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	"github.com/dinehq/dinehq/internal/config"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
)

const (
	defaultAdminEmail    = "admin@dinehq.app"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "DineHQ Admin"
)

type planSeed struct {
	name        string
	description string
	priceCents  int64
	trialDays   int
	features    []string
	limits      map[string]limitSeed
}

type limitSeed struct {
	limit int64
	unit  string
}

var defaultPlans = []planSeed{
	{
		name:        "Starter",
		description: "For single-location restaurants getting online.",
		priceCents:  2900,
		trialDays:   14,
		features:    []string{"basic_features", "online_menu"},
		limits: map[string]limitSeed{
			"menu_items": {limit: 100, unit: "items"},
		},
	},
	{
		name:        "Standard",
		description: "Adds ordering and analytics for growing restaurants.",
		priceCents:  7900,
		trialDays:   14,
		features:    []string{"basic_features", "online_menu", "online_ordering", "analytics"},
		limits: map[string]limitSeed{
			"menu_items": {limit: 500, unit: "items"},
		},
	},
	{
		name:        "Premium",
		description: "Multi-location support and priority everything.",
		priceCents:  19900,
		trialDays:   14,
		features:    []string{"basic_features", "online_menu", "online_ordering", "analytics", "multi_location", "priority_support"},
		limits: map[string]limitSeed{
			"menu_items": {limit: 5000, unit: "items"},
		},
	},
}

// EnsureDefaults seeds the plan catalog and, outside production, a default
// admin account. Existing rows are left untouched.
func EnsureDefaults(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPlans {
			if err := ensurePlanTx(ctx, tx, node, p); err != nil {
				return err
			}
		}
		if cfg.IsProduction() {
			return nil
		}
		return ensureAdminTx(ctx, tx, node)
	})
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, p planSeed) error {
	code := slug.Make(p.name)

	var count int64
	if err := tx.Raw(`SELECT COUNT(*) FROM plans WHERE code = ?`, code).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	featuresJSON, err := json.Marshal(p.features)
	if err != nil {
		return err
	}
	limitMap := datatypes.JSONMap{}
	for key, ls := range p.limits {
		limitMap[key] = ls.limit
	}

	now := time.Now().UTC()
	plan := plandomain.Plan{
		ID:            node.Generate(),
		Code:          code,
		Name:          p.name,
		Description:   p.description,
		PriceCents:    p.priceCents,
		Currency:      "usd",
		Interval:      plandomain.IntervalMonthly,
		Features:      datatypes.JSON(featuresJSON),
		FeatureLimits: limitMap,
		TrialDays:     p.trialDays,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Create(&plan).Error; err != nil {
		return err
	}

	for _, key := range p.features {
		row := plandomain.PlanFeature{
			ID:         node.Generate(),
			PlanID:     plan.ID,
			FeatureKey: key,
			Enabled:    true,
			CreatedAt:  now,
		}
		if ls, ok := p.limits[key]; ok {
			limit := ls.limit
			row.Limit = &limit
			row.LimitUnit = ls.unit
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for key, ls := range p.limits {
		if contains(p.features, key) {
			continue
		}
		limit := ls.limit
		row := plandomain.PlanFeature{
			ID:         node.Generate(),
			PlanID:     plan.ID,
			FeatureKey: key,
			Enabled:    true,
			Limit:      &limit,
			LimitUnit:  ls.unit,
			CreatedAt:  now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.Raw(`SELECT COUNT(*) FROM accounts WHERE email = ?`, defaultAdminEmail).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := accountdomain.Account{
		ID:           node.Generate(),
		Email:        defaultAdminEmail,
		DisplayName:  defaultAdminDisplay,
		PasswordHash: string(hash),
		Role:         accountdomain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.Create(&admin).Error
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
