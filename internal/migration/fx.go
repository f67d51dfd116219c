package migration

import (
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, holder *config.LedgerConfigHolder) error {
		// Schema migrations target postgres; other dialects are expected to
		// arrive with the schema already in place.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultCommissionRule(conn, holder.Get().DefaultCommissionBP)
	}),
)
