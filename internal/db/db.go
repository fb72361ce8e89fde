package db

import (
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"expengine/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the core tables.
	if err := db.AutoMigrate(&Experiment{}, &Assignment{}, &MetricRecord{}, &APIKey{}); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureBootstrapAPIKey makes sure the internal API key from config exists
// as an active ingest key. If a row with that key already exists it is
// left as-is (reactivated if it was disabled).
func EnsureBootstrapAPIKey(db *gorm.DB, cfg *config.Config) error {
	if cfg.InternalAPIKey == "" {
		return nil
	}

	var existing APIKey
	err := db.Where("key = ?", cfg.InternalAPIKey).Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		if !existing.Active {
			existing.Active = true
			return db.Save(&existing).Error
		}
		return nil
	}

	return db.Create(&APIKey{
		Name:   "expengine-internal",
		Key:    cfg.InternalAPIKey,
		Active: true,
	}).Error
}

// EnsureSeedExperiments creates a sample active experiment so a fresh
// demo instance has something to resolve against. Existing rows are
// never touched.
func EnsureSeedExperiments(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Experiment{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Create(SeedExperiment()).Error
}

// SeedExperiment is the sample experiment used by demo seeding, for both
// the persistent and the in-memory store.
func SeedExperiment() *Experiment {
	now := time.Now()
	return &Experiment{
		ID:               "exp-recs-1",
		Name:             "Recommendation strategy",
		Description:      "Collaborative filtering vs content based for the home feed",
		ControlAlgorithm: "collaborative_filtering",
		TestAlgorithm:    "content_based",
		TrafficSplit:     0.5,
		Status:           StatusActive,
		StartDate:        &now,
		CreatedBy:        "seed",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
