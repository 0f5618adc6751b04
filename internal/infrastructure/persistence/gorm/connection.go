package gorm

import (
	"fmt"

	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Connect opens the analytics database. The driver comes from config:
// postgres for deployments, sqlite (file or :memory:) for dev and tests.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormLogger.Silent
	if cfg.App.Debug {
		logLevel = gormLogger.Info
	}
	gormCfg := &gorm.Config{Logger: gormLogger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	case "sqlite":
		path := cfg.Database.Database
		if path == "" {
			path = ":memory:"
		} else if path != ":memory:" {
			path += ".db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	return db, nil
}
