package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	authdomain "github.com/dinehq/dinehq/internal/auth/domain"
	"github.com/dinehq/dinehq/internal/config"
	menudomain "github.com/dinehq/dinehq/internal/menu/domain"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	"github.com/dinehq/dinehq/internal/seed"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (local sqlite, mysql) rely on
			// AutoMigrate instead of the embedded SQL.
			if err := conn.AutoMigrate(
				&accountdomain.Account{},
				&authdomain.Session{},
				&plandomain.Plan{},
				&plandomain.PlanFeature{},
				&subscriptiondomain.Subscription{},
				&menudomain.MenuItem{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaults(conn, cfg)
	}),
)
