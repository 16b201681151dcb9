package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(opts ...MigrateOptions) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	// every new connection to :memory: is a separate empty database
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get test database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	migrateOpts := MigrateOptions{EnforceUniqueness: true}
	if len(opts) > 0 {
		migrateOpts = opts[0]
	}
	if err := Migrate(gdb, migrateOpts); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return gdb, nil
}

// CleanupTestDB cleans up the test database
func CleanupTestDB(gdb *gorm.DB) {
	if err := Close(gdb); err != nil {
		log.Printf("Failed to close test DB: %v", err)
	}
}

// TruncateAllTables removes all data from tables
func TruncateAllTables(gdb *gorm.DB) error {
	tables := []string{"reviews"}
	for _, table := range tables {
		if err := gdb.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
