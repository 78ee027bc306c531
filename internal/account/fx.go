package account

import (
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/account/repository"
)

var Module = fx.Module("account",
	fx.Provide(repository.NewAccountRepository),
)
