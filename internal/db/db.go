package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hort-presence-backend/config"
	"hort-presence-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
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

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Group{},
		&model.Student{},
		&model.PresenceOpen{},
		&model.PresenceHistory{},
		&model.PushSubscription{},
		&model.UnclaimedAlert{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale {
		log.Println("TimescaleDB is enabled, applying TimescaleDB-specific DDL...")
		if err := applyTimescaleDDL(db); err != nil {
			log.Printf("Warning: failed to apply some TimescaleDB DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"SELECT create_hypertable('presence_histories', 'observed_at', if_not_exists => TRUE);",

		"ALTER TABLE presence_histories " +
			"ADD CONSTRAINT presence_histories_period_valid CHECK (period_start <= period_end);",

		// Range queries over spans: which students were where at time T.
		"CREATE INDEX idx_presence_history_period_expr ON presence_histories " +
			"USING GIST (student_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX idx_presence_history_student_id_observed_at ON presence_histories (student_id, observed_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
