// Package repo implements the data persistence layer for domain entities,
// backed by GORM over pure-Go SQLite. This file contains database
// bootstrapping helpers and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// OpenSQLite opens (or creates) the local work-state database and applies
// PRAGMAs suited to a single-process writer.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist, instead of the
	// opaque sqlite "out of memory (14)" error.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// EnableTracing attaches the GORM OpenTelemetry plugin so store operations
// show up as spans under the HTTP request trace.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the schema for all persisted models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.WorkRecord{},
		&domain.Snapshot{},
		&domain.SettingsDoc{},
		&domain.SubmissionReceipt{},
	)
}
