package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/buildtrack/backend/internal/infrastructure/config"
	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	root := newRootCommand(log, openPostgres)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// openPostgres connects with the configured database secrets and wraps the
// connection in a Migrator reading from src.
func openPostgres(src migration.Source, log *zap.Logger) (schemaMigrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if !cfg.Database.Configured() {
		return nil, fmt.Errorf("database is not configured: missing %v", cfg.Database.Missing())
	}
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, src, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}
