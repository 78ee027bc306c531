package auth

import (
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/auth/repository"
	"github.com/dinehq/dinehq/internal/auth/service"
	"github.com/dinehq/dinehq/internal/auth/session"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.NewService),
	fx.Provide(session.NewManager),
)
