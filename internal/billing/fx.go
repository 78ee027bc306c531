package billing

import (
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/billing/stripe"
)

var Module = fx.Module("billing",
	fx.Provide(
		fx.Annotate(stripe.NewClient, fx.As(new(domain.Provider))),
		fx.Annotate(stripe.NewWebhookVerifier, fx.As(new(domain.WebhookVerifier))),
	),
)
