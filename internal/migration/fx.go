package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/seed"
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

		if cfg.DefaultSchoolID != 0 {
			if err := seed.EnsureDefaultSchoolWithID(conn, cfg.DefaultSchoolID); err != nil {
				return err
			}
		} else if err := seed.EnsureDefaultSchool(conn); err != nil {
			return err
		}

		return seed.EnsureBaseData(conn)
	}),
)
