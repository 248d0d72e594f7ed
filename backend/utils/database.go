package utils

import (
	"fmt"
	"time"

	"career-roadmap/backend/config"
	"career-roadmap/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// InitDB opens the configured database and migrates the roadmap tables.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DBPath + "?_busy_timeout=5000&_foreign_keys=1")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, GormConfig(gormLogger.Warn))
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == config.DriverSQLite {
		// SQLite allows a single writer; funnel everything through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig is shared by InitDB and tests. Driver errors are translated so that
// constraint violations surface as gorm.ErrDuplicatedKey.
func GormConfig(level gormLogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Roadmap{},
		&models.RoadmapProgressEntry{},
	)
}
