package plan

import (
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/plan/repository"
	"github.com/dinehq/dinehq/internal/plan/service"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.NewPlanRepository),
	fx.Provide(service.NewService),
)
