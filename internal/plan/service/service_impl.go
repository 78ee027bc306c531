// Package service implements the plan catalog.
package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/plan/repository"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]domain.Plan, error) {
	return s.repo.List(ctx, s.db, onlyActive)
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

// GetFeatures implements domain.Service.
func (s *Service) GetFeatures(ctx context.Context, planID snowflake.ID) ([]domain.PlanFeature, error) {
	if _, err := s.Get(ctx, planID); err != nil {
		return nil, err
	}
	return s.repo.ListFeatures(ctx, s.db, planID)
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Interval != domain.IntervalMonthly && req.Interval != domain.IntervalYearly {
		return nil, domain.ErrInvalidInterval
	}
	if req.PriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.TrialDays < 0 {
		return nil, domain.ErrInvalidTrial
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	featuresJSON, err := json.Marshal(req.Features)
	if err != nil {
		return nil, err
	}
	var limitMap datatypes.JSONMap
	if len(req.FeatureLimits) > 0 {
		limitMap = datatypes.JSONMap{}
		for key, max := range req.FeatureLimits {
			limitMap[key] = max
		}
	}

	now := s.clock.Now().UTC()
	plan := &domain.Plan{
		ID:              s.genID.Generate(),
		Code:            slug.Make(name),
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		PriceCents:      req.PriceCents,
		Currency:        currency,
		Interval:        req.Interval,
		Features:        datatypes.JSON(featuresJSON),
		FeatureLimits:   limitMap,
		TrialDays:       req.TrialDays,
		StripeProductID: req.StripeProductID,
		StripePriceID:   req.StripePriceID,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, plan); err != nil {
			return err
		}
		if len(req.FeatureRows) == 0 {
			return nil
		}
		rows := make([]domain.PlanFeature, 0, len(req.FeatureRows))
		for _, fr := range req.FeatureRows {
			rows = append(rows, domain.PlanFeature{
				ID:         s.genID.Generate(),
				PlanID:     plan.ID,
				FeatureKey: fr.FeatureKey,
				Enabled:    fr.Enabled,
				Limit:      fr.Limit,
				LimitUnit:  fr.LimitUnit,
				CreatedAt:  now,
			})
		}
		return s.repo.ReplaceFeatures(ctx, tx, plan.ID, rows)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("code", plan.Code),
	)
	return plan, nil
}

// Update implements domain.Service.
func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdatePlanRequest) (*domain.Plan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		plan.Name = name
	}
	if req.Description != nil {
		plan.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		plan.PriceCents = *req.PriceCents
	}
	if req.Interval != nil {
		if *req.Interval != domain.IntervalMonthly && *req.Interval != domain.IntervalYearly {
			return nil, domain.ErrInvalidInterval
		}
		plan.Interval = *req.Interval
	}
	if req.TrialDays != nil {
		if *req.TrialDays < 0 {
			return nil, domain.ErrInvalidTrial
		}
		plan.TrialDays = *req.TrialDays
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}
	plan.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Archive implements domain.Service.
func (s *Service) Archive(ctx context.Context, id snowflake.ID) error {
	active := false
	_, err := s.Update(ctx, id, domain.UpdatePlanRequest{Active: &active})
	return err
}
