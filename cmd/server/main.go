package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/buildtrack/backend/internal/infrastructure/config"
	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/buildtrack/backend/internal/infrastructure/snapshot"
	"github.com/buildtrack/backend/internal/infrastructure/telemetry"
	"github.com/buildtrack/backend/internal/interfaces/http/handler"
	"github.com/buildtrack/backend/internal/interfaces/http/middleware"
	"github.com/buildtrack/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.FromLogConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting BuildTrack backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tcfg := telemetry.FromTelemetryConfig(cfg.Telemetry, version)
	ctx := context.Background()

	// Tracing is installed before the database so the gorm plugin picks up the global provider
	tp, err := telemetry.NewTracerProvider(ctx, tcfg, log)
	if err != nil {
		log.Error("Failed to initialize telemetry, continuing without tracing", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", func(ctx context.Context) error {
		if tp == nil {
			return nil
		}
		return tp.Shutdown(ctx)
	})

	mp, err := telemetry.NewMeterProvider(ctx, tcfg, log)
	if err != nil {
		log.Error("Failed to initialize metrics, continuing without them", zap.Error(err))
	}
	defer shutdown(log, "meter provider", func(ctx context.Context) error {
		if mp == nil {
			return nil
		}
		return mp.Shutdown(ctx)
	})

	lp, err := telemetry.NewLoggerProvider(ctx, tcfg, log)
	if err != nil {
		log.Error("Failed to initialize log export, continuing without it", zap.Error(err))
	} else {
		log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	}
	defer shutdown(log, "logger provider", func(ctx context.Context) error {
		if lp == nil {
			return nil
		}
		return lp.Shutdown(ctx)
	})

	profiler, err := telemetry.NewProfiler(cfg.Telemetry.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Error("Failed to start profiler, continuing without it", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
		if profiler.IsEnabled() && tp != nil {
			tp.EnableSpanProfiles()
		}
	}

	var meter metric.Meter
	if mp != nil && mp.IsEnabled() {
		meter = mp.Meter("buildtrack.backend")
	}

	db := openDatabase(cfg, meter, log)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	registry := resource.NewDatabaseRegistry(db)
	resources := resource.NewService(registry, db, snapshot.NewStore(cfg.Snapshot.Dir), log)

	engineCfg := router.EngineConfigFrom(cfg)
	engineCfg.Meter = meter
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitBurst)
		defer limiter.Close()
		engineCfg.RateLimiter = limiter
	}

	engine := router.NewEngine(engineCfg, log)
	engine.GET("/health", handler.NewHealthHandler(db, 2*time.Second).Check)

	r := router.NewRouter(engine, router.WithPrefix("/api"))
	r.Register(router.ResourceRoutes(handler.NewResourceHandler(resources), engineCfg.RouteMiddleware(), append(registry.Names(), resource.Summary)...))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// openDatabase never fails: missing secrets or a bad URL are logged and every
// query then answers with ErrNotConfigured.
func openDatabase(cfg *config.Config, meter metric.Meter, log *zap.Logger) *persistence.Database {
	if missing := cfg.Database.Missing(); len(missing) > 0 {
		log.Error("Database secrets are not set; every query will fail until they are",
			zap.Strings("missing", missing))
		return persistence.Unconfigured()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return persistence.Unconfigured()
	}

	if err := db.Use(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	if meter != nil {
		if err := db.Use(telemetry.NewDBMetricsPlugin(meter, cfg.Telemetry.DBSlowQueryThresh, log)); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
	}
	log.Info("Database client initialized")
	return db
}

// shutdown runs fn with a bounded context and logs its failure
func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
