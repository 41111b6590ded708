package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared connection handle. Initialize must run before any
// handler or service touches it.
var DB *gorm.DB

// Initialize opens the sqlite database. WAL mode lets the audit and email
// goroutines write while request handlers read; the busy timeout covers the
// short write locks that remain.
func Initialize(dbPath string, environment string) error {
	logLevel := logger.Info
	if environment == "production" || environment == "test" {
		logLevel = logger.Warn
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	var err error
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database ready at %s (WAL)", dbPath)
	return nil
}

// AutoMigrate runs schema migrations for the given models
func AutoMigrate(entities ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := DB.AutoMigrate(entities...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
