package persistence

import (
	"fmt"
	"time"

	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// DatabaseConfig holds connection settings
type DatabaseConfig struct {
	DSN           string // sqlite file path or ":memory:"
	LogLevel      string // silent, error, warn, info
	SlowThreshold time.Duration
	// TracerProvider, when set, receives a span per statement
	TracerProvider trace.TracerProvider
}

// NewDatabase opens a sqlite database logging through zapLogger
func NewDatabase(cfg DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	if cfg.DSN == "" {
		cfg.DSN = ":memory:"
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = 200 * time.Millisecond
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger:                 logger.NewGormLogger(zapLogger, logger.GormLevel(cfg.LogLevel), cfg.SlowThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	sqlDB.SetMaxOpenConns(1)

	if cfg.TracerProvider != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(cfg.TracerProvider),
			otelgorm.WithDBName("sqlite"),
			otelgorm.WithoutQueryVariables(),
		)
		if err := db.Use(plugin); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	return &Database{DB: db}, nil
}

// Migrate creates or updates the tables owned by this package.
// Models using the conversion serializer require RegisterConversionSerializer first.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(&conversionHistoryModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
