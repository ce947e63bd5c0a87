// Package importapp loads spreadsheet exports into the construction tables.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/buildtrack/backend/internal/domain/construction"
	csvimport "github.com/buildtrack/backend/internal/infrastructure/import"
	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

var (
	// ErrUnknownTable is returned for a table with no CSV mapping
	ErrUnknownTable = errors.New("unknown table")
	// ErrMissingColumns is returned when required headers are absent
	ErrMissingColumns = errors.New("missing required columns")
)

// Options tunes a single import
type Options struct {
	// OrganizationID scopes every row; when nil each row must carry organization_id
	OrganizationID uuid.UUID
	MaxErrors      int
	// DryRun validates without inserting
	DryRun bool
	// Encoding decodes non-UTF-8 files; nil means UTF-8 or a byte order mark
	Encoding encoding.Encoding
}

// Result summarizes an import. Rows with any error are skipped; the rest are inserted.
type Result struct {
	Table        string               `json:"table"`
	TotalRows    int                  `json:"total_rows"`
	ValidRows    int                  `json:"valid_rows"`
	ImportedRows int                  `json:"imported_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
	DryRun       bool                 `json:"dry_run,omitempty"`
}

// Service imports CSV files into tables
type Service struct {
	db     *persistence.Database
	logger *zap.Logger
}

// NewService creates a new import Service
func NewService(db *persistence.Database, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Tables lists the tables that accept CSV imports
func Tables() []string {
	names := make([]string, 0, len(tableImports))
	for name := range tableImports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredColumns returns the headers a file for table must have
func RequiredColumns(table string) ([]string, error) {
	ti, ok := tableImports[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return ti.required, nil
}

// Import parses r as CSV for table, validates each row and inserts the valid ones
func (s *Service) Import(ctx context.Context, table string, r io.Reader, opts Options) (*Result, error) {
	ti, ok := tableImports[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	var parserOpts []csvimport.ParserOption
	if opts.Encoding != nil {
		parserOpts = append(parserOpts, csvimport.WithEncoding(opts.Encoding))
	}
	parser, err := csvimport.NewCSVParser(r, parserOpts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	required := ti.required
	if opts.OrganizationID == uuid.Nil && table != construction.TableOrganizations {
		required = append([]string{"organization_id"}, required...)
	}
	if missing := parser.ValidateHeaders(required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	errs := csvimport.NewErrorCollection(opts.MaxErrors)
	malformed := 0
	rows, err := parser.ReadAllRows(func(line int, err error) {
		malformed++
		errs.Add(csvimport.RowError{Row: line, Code: csvimport.ErrCodeImportMalformedRow, Message: err.Error()})
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && !errs.HasErrors() {
		return nil, csvimport.ErrNoDataRows
	}

	records := make([]any, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, rowErrs, err := mapRow(ti, row, opts.OrganizationID)
		if err != nil {
			return nil, err
		}
		if len(rowErrs) > 0 {
			errs.AddAll(rowErrs)
			continue
		}
		records = append(records, record)
	}

	result := &Result{
		Table:       table,
		TotalRows:   len(rows) + malformed,
		ValidRows:   len(records),
		ErrorRows:   errs.RowCount(),
		Errors:      errs.Errors(),
		IsTruncated: errs.IsTruncated(),
		TotalErrors: errs.TotalCount(),
		DryRun:      opts.DryRun,
	}

	if !opts.DryRun && len(records) > 0 {
		if err := ti.insert(ctx, s.db, records); err != nil {
			return nil, fmt.Errorf("import %s: %w", table, err)
		}
		result.ImportedRows = len(records)
	}

	s.logger.Info("CSV import finished",
		zap.String("table", table),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("error_rows", result.ErrorRows),
		zap.Bool("dry_run", opts.DryRun),
	)
	return result, nil
}

// mapRow builds one record. Cell errors skip struct validation so a bad
// date is reported once, not also as a missing required field.
func mapRow(ti tableImport, row *csvimport.Row, org uuid.UUID) (any, []csvimport.RowError, error) {
	f := csvimport.NewFieldReader(row)
	record := ti.build(rowContext{f: f, org: org})
	if errs := f.Errors(); len(errs) > 0 {
		return nil, errs, nil
	}

	fieldErrs, err := construction.Validate(record)
	if err != nil {
		return nil, nil, err
	}
	if len(fieldErrs) == 0 {
		return record, nil, nil
	}
	rowErrs := make([]csvimport.RowError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rowErrs = append(rowErrs, csvimport.RowError{
			Row:     row.LineNumber,
			Column:  fe.Field,
			Code:    csvimport.ErrCodeImportValidation,
			Message: fe.Message,
			Value:   row.Get(fe.Field),
		})
	}
	return nil, rowErrs, nil
}
