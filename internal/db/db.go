package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trustlens/internal/models"
)

const sqlitePrefix = "sqlite://"

var ErrMissingDSN = errors.New("database URL is not set")

// InitDB opens the store named by dsn. A "sqlite://<path>" DSN selects the
// embedded driver for local runs and tests; anything else is handed to postgres.
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	db, err := gorm.Open(dialector(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info), // Log SQL queries
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}

	if IsSQLite(db) {
		// A single connection keeps in-memory databases alive and serializes writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}
	return postgres.Open(dsn)
}

// IsSQLite reports whether db runs on the embedded driver.
func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// EnsureSchema creates every table and index the API uses. It is idempotent
// and runs on every startup.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Version returns the server version string.
func Version(db *gorm.DB) (string, error) {
	query := "SELECT version()"
	if IsSQLite(db) {
		query = "SELECT sqlite_version()"
	}

	var version string
	if err := db.Raw(query).Scan(&version).Error; err != nil {
		return "", err
	}
	return version, nil
}

// ExpectedTables lists the tables diagnostics checks for.
var ExpectedTables = []string{"users", "reviews", "review_analysis", "predict"}

// PresentTables returns the subset of ExpectedTables that exist.
func PresentTables(db *gorm.DB) []string {
	migrator := db.Migrator()
	present := make([]string, 0, len(ExpectedTables))
	for _, table := range ExpectedTables {
		if migrator.HasTable(table) {
			present = append(present, table)
		}
	}
	return present
}
