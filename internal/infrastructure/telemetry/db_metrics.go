package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsPlugin records query counts, latency and connection pool usage.
// It satisfies gorm.Plugin so it can be passed to (*persistence.Database).Use.
type DBMetricsPlugin struct {
	meter         metric.Meter
	slowThreshold time.Duration
	logger        *zap.Logger

	queryTotal     *Counter
	queryErrors    *Counter
	slowQueryTotal *Counter
	queryDuration  *Histogram
	registration   metric.Registration
}

// NewDBMetricsPlugin creates the plugin; instruments are created on Initialize
func NewDBMetricsPlugin(meter metric.Meter, slowThreshold time.Duration, logger *zap.Logger) *DBMetricsPlugin {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{meter: meter, slowThreshold: slowThreshold, logger: logger}
}

// Name implements gorm.Plugin
func (p *DBMetricsPlugin) Name() string {
	return "buildtrack:db_metrics"
}

// Initialize implements gorm.Plugin
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	var err error
	if p.queryTotal, err = NewCounter(p.meter, "db_query_total", "Total number of database queries", "{query}"); err != nil {
		return err
	}
	if p.queryErrors, err = NewCounter(p.meter, "db_query_errors_total", "Database queries that returned an error", "{query}"); err != nil {
		return err
	}
	if p.slowQueryTotal, err = NewCounter(p.meter, "db_slow_query_total", "Database queries slower than the slow query threshold", "{query}"); err != nil {
		return err
	}
	if p.queryDuration, err = NewHistogram(p.meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return err
	}

	if err := p.registerCallbacks(db); err != nil {
		return err
	}
	if err := p.registerPoolStats(db); err != nil {
		return err
	}

	p.logger.Info("Database metrics enabled", zap.Duration("slow_query_threshold", p.slowThreshold))
	return nil
}

func (p *DBMetricsPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
	}
	for _, s := range steps {
		if err := s.before("db_metrics:before_"+s.name, markQueryStart); err != nil {
			return err
		}
		if err := s.after("db_metrics:after_"+s.name, p.recorder(s.name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBMetricsPlugin) recorder(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		attrs := []attribute.KeyValue{
			AttrDBOperation.String(operation),
			AttrDBTable.String(db.Statement.Table),
		}

		p.queryTotal.Inc(ctx, attrs...)
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			p.queryErrors.Inc(ctx, attrs...)
		}

		start, ok := ctx.Value(queryStartTimeKey).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		p.queryDuration.RecordDuration(ctx, elapsed, attrs...)
		if elapsed > p.slowThreshold {
			p.slowQueryTotal.Inc(ctx, attrs...)
		}
	}
}

// registerPoolStats observes database/sql pool statistics on every collection
func (p *DBMetricsPlugin) registerPoolStats(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	connections, err := p.meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxOpen, err := p.meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := p.meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for because the pool was exhausted"), metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	p.registration, err = p.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
	return err
}

// Close stops observing the connection pool
func (p *DBMetricsPlugin) Close() error {
	if p.registration == nil {
		return nil
	}
	return p.registration.Unregister()
}
