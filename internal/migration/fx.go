package migration

import (
	"github.com/nivala/pricing/internal/config"
	"github.com/nivala/pricing/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if err := seed.EnsureServiceTypes(conn); err != nil {
			return err
		}
		if cfg.BootstrapAdminKey != "" {
			return seed.EnsureBootstrapAdminKey(conn, cfg.BootstrapAdminKey)
		}
		return nil
	}),
)
