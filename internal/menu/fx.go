package menu

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dinehq/dinehq/internal/menu/domain"
	"github.com/dinehq/dinehq/internal/menu/repository"
	"github.com/dinehq/dinehq/internal/usage"
)

var Module = fx.Module("menu",
	fx.Provide(repository.NewMenuRepository),
	fx.Invoke(registerUsageCounter),
)

func registerUsageCounter(registry *usage.Registry, repo domain.Repository, db *gorm.DB) {
	registry.Register(domain.LimitKeyMenuItems, func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return repo.CountByAccount(ctx, db, accountID)
	})
}
