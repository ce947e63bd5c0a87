// Package resource serves the read-only table resources behind /api/db: one live read per
// request, a snapshot fallback for the resources that declare one, and the summary rollup.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnknownResource is returned when a route name is not registered
var ErrUnknownResource = errors.New("unknown resource")

// Source tags where the data of a fallback-capable resource came from
type Source string

const (
	SourceDatabase Source = "database"
	SourceFallback Source = "json_fallback"
)

// Result is the outcome of one read. Source is empty for resources without a fallback.
type Result struct {
	Data   any
	Count  int
	Source Source
}

// FallbackLoader reads a snapshot file as a list of raw JSON elements
type FallbackLoader interface {
	Load(file string) ([]json.RawMessage, error)
}

// Summarizer counts a table and totals one of its columns
type Summarizer interface {
	Summarize(ctx context.Context, table, column string) (persistence.TableTotal, error)
}

// SummaryRow is one table's line in the summary resource
type SummaryRow struct {
	Table       string          `json:"table"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Service reads registered resources
type Service struct {
	registry   *Registry
	summarizer Summarizer
	fallback   FallbackLoader
	logger     *zap.Logger
}

// NewService creates a new Service
func NewService(registry *Registry, summarizer Summarizer, fallback FallbackLoader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:   registry,
		summarizer: summarizer,
		fallback:   fallback,
		logger:     logger,
	}
}

// Registry returns the resources the service serves
func (s *Service) Registry() *Registry {
	return s.registry
}

// Read performs the read behind GET /api/db/{name}
func (s *Service) Read(ctx context.Context, name string) (*Result, error) {
	if name == Summary {
		return s.summary(ctx)
	}

	def, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}

	rows, count, err := def.Fetch(ctx)
	if !def.HasFallback() {
		if err != nil {
			return nil, err
		}
		return &Result{Data: rows, Count: count}, nil
	}

	if err == nil && count > 0 {
		return &Result{Data: rows, Count: count, Source: SourceDatabase}, nil
	}
	return s.readFallback(ctx, def, rows, count, err)
}

// readFallback serves the snapshot of def after a failed or empty live read.
// If the snapshot cannot be read, the live outcome stands.
func (s *Service) readFallback(ctx context.Context, def Definition, rows any, count int, liveErr error) (*Result, error) {
	log := s.contextLogger(ctx).With(
		zap.String("resource", def.Name),
		zap.String("file", def.FallbackFile),
	)
	if liveErr != nil {
		log = log.With(zap.NamedError("live_error", liveErr))
	}

	if s.fallback == nil {
		if liveErr != nil {
			return nil, liveErr
		}
		return &Result{Data: rows, Count: count, Source: SourceDatabase}, nil
	}

	items, err := s.fallback.Load(def.FallbackFile)
	if err != nil {
		log.Warn("Snapshot fallback unavailable", zap.Error(err))
		if liveErr != nil {
			return nil, liveErr
		}
		return &Result{Data: rows, Count: count, Source: SourceDatabase}, nil
	}

	log.Info("Serving snapshot fallback", zap.Int("count", len(items)))
	return &Result{Data: items, Count: len(items), Source: SourceFallback}, nil
}

// summary counts every registered table and totals its money column
func (s *Service) summary(ctx context.Context) (*Result, error) {
	defs := s.registry.All()
	rows := make([]SummaryRow, 0, len(defs))
	for _, def := range defs {
		total, err := s.summarizer.Summarize(ctx, def.Table, def.SumColumn)
		if err != nil {
			return nil, err
		}
		rows = append(rows, SummaryRow{
			Table:       def.Table,
			Count:       total.Count,
			TotalAmount: total.Total,
		})
	}
	return &Result{Data: rows, Count: len(rows)}, nil
}

func (s *Service) contextLogger(ctx context.Context) *zap.Logger {
	log := logger.WithTraceContext(ctx, s.logger)
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	return log
}
