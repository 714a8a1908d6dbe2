package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

const sqlitePrefix = "sqlite://"

// Open returns a gorm dialector for the DSN: "sqlite://<path>" selects the
// embedded driver, anything else is handed to PostgreSQL.
func Open(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}
	return postgres.Open(dsn)
}

// Connect establishes the database connection
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// Models lists every table owned by this package, in dependency order
func Models() []interface{} {
	return []interface{}{
		&Zone{},
		&Machine{},
		&MachineEvent{},
		&ProductionExtrusion{},
		&ProductionPrinting{},
		&ProductionWelding{},
		&ProductionRecycling{},
		&AIAlert{},
		&AnalysisSettings{},
	}
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	if err := DB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	if _, err := GetOrCreateAnalysisSettings(DB); err != nil {
		return fmt.Errorf("failed to create default analysis settings: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrCreateAnalysisSettings retrieves or creates the analysis settings (singleton).
// Takes a db handle so callers can pass a transaction or a test database.
func GetOrCreateAnalysisSettings(db *gorm.DB) (*AnalysisSettings, error) {
	var settings AnalysisSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultAnalysisSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateAnalysisSettings saves every field, zero values included
func UpdateAnalysisSettings(db *gorm.DB, settings *AnalysisSettings) error {
	return db.Save(settings).Error
}
