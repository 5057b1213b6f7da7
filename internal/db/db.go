package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pgstay-backend/config"
	"pgstay-backend/internal/model"
)

// Init opens the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		log.Info("applying postgres-specific uniqueness DDL")
		if err := applyPostgresDDL(db); err != nil {
			return nil, err
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate runs the schema migrations for all entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Property{},
		&model.RoomType{},
		&model.Room{},
		&model.Tenant{},
		&model.TenantAssignment{},
		&model.RentPayment{},
		&model.Complaint{},
		&model.AlertSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresDDL creates the partial unique indexes that enforce the
// one-active-assignment invariants at the database level. AutoMigrate
// cannot express predicated indexes, and on multi-process deployments
// these stand behind the engine's in-process locks.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// A tenant holds at most one active bed at a time.
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_assignment_per_tenant " +
			"ON tenant_assignments (tenant_id) WHERE status = 'active';",

		// A bed slot holds at most one active tenant at a time.
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_assignment_per_bed " +
			"ON tenant_assignments (room_id, bed_slot) WHERE status = 'active';",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
