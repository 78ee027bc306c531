package subscription

import (
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/subscription/repository"
	"github.com/dinehq/dinehq/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.NewSubscriptionRepository),
	fx.Provide(service.NewService),
)
