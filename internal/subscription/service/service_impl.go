// Package service implements entitlement resolution and the subscription
// lifecycle against the billing provider.
package service

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/subscription/domain"
	"github.com/dinehq/dinehq/internal/usage"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg config.Config

	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	planRepo plandomain.Repository
	accounts accountdomain.Repository
	provider billingdomain.Provider
	usage    *usage.Registry
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	PlanRepo plandomain.Repository
	Accounts accountdomain.Repository
	Provider billingdomain.Provider
	Usage    *usage.Registry
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		cfg:      p.Cfg,
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
		accounts: p.Accounts,
		provider: p.Provider,
		usage:    p.Usage,
	}
}
