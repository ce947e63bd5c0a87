package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/buildtrack/backend/internal/infrastructure/config"
	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/internal/infrastructure/snapshot"
	"github.com/buildtrack/backend/internal/infrastructure/storage"
	"github.com/buildtrack/backend/internal/interfaces/cli"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Command output goes to stdout; logs stay on stderr unless configured otherwise.
	logCfg := logger.FromLogConfig(cfg.Log)
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	var db *persistence.Database
	defer func() {
		if db != nil {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}
	}()

	deps := cli.Deps{
		Logger:    log,
		Snapshots: snapshot.NewStore(cfg.Snapshot.Dir),
		KeyPrefix: cfg.Snapshot.KeyPrefix,
		OpenDB: func() (*persistence.Database, error) {
			gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
			opened, err := persistence.NewDatabase(&cfg.Database, gormLog)
			if err != nil {
				return nil, err
			}
			db = opened
			return db, nil
		},
		OpenStorage: func(ctx context.Context) (resource.Uploader, error) {
			if !cfg.Storage.Enabled() {
				return nil, errors.New("object storage is not configured: set storage.bucket, storage.access_key and storage.secret_key")
			}
			s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
			if err != nil {
				return nil, err
			}
			if err := s3.EnsureBucket(ctx); err != nil {
				return nil, err
			}
			return s3, nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(deps)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
