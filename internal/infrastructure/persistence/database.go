package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildtrack/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotConfigured is returned by every operation on a Database that was created without
// connection secrets. The service still starts in that state; requests then fail with it.
var ErrNotConfigured = errors.New("database is not configured: DATABASE_URL and DATABASE_SERVICE_KEY are required")

// Database holds the database connection and provides methods for database operations.
// The zero value is a valid, unconfigured Database.
type Database struct {
	DB *gorm.DB
}

// Unconfigured returns a Database whose operations all fail with ErrNotConfigured
func Unconfigured() *Database {
	return &Database{}
}

// NewDatabase opens a pooled connection to the hosted Postgres database.
// No ping is issued; an unreachable server surfaces on the first query.
func NewDatabase(cfg *config.DatabaseConfig, gormLogger gormlogger.Interface) (*Database, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := Open(postgres.Open(dsn), gormLogger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	return db, nil
}

// Open wraps any gorm dialector; tests use it with sqlite and sqlmock
func Open(dialector gorm.Dialector, gormLogger gormlogger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{DB: db}, nil
}

// Configured reports whether the Database has a live connection handle
func (d *Database) Configured() bool {
	return d != nil && d.DB != nil
}

// Use registers a gorm plugin (tracing) on the connection
func (d *Database) Use(plugin gorm.Plugin) error {
	if !d.Configured() {
		return ErrNotConfigured
	}
	return d.DB.Use(plugin)
}

// Close closes the database connection
func (d *Database) Close() error {
	if !d.Configured() {
		return nil
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	if !d.Configured() {
		return ErrNotConfigured
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	if !d.Configured() {
		return ConnectionStats{}, ErrNotConfigured
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}
