package persistence

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// insertBatchSize bounds the rows sent per INSERT statement
const insertBatchSize = 100

// ListQuery describes a single table read: ordering and relations to preload
type ListQuery struct {
	Order    []Order
	Preloads []string
}

// Order is one ORDER BY term. Column is quoted by the dialect, never interpolated.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending
func Desc(column string) Order { return Order{Column: column, Desc: true} }

func (o Order) clause() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc}
}

// List reads every row of T's table, ordered and with the requested relations preloaded.
// An empty table yields an empty, non-nil slice.
func List[T any](ctx context.Context, d *Database, q ListQuery) ([]T, error) {
	if !d.Configured() {
		return nil, ErrNotConfigured
	}

	query := d.DB.WithContext(ctx)
	for _, rel := range q.Preloads {
		query = query.Preload(rel)
	}
	for _, o := range q.Order {
		query = query.Order(o.clause())
	}

	rows := make([]T, 0)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert writes rows in batches; it is the write path of the operational tooling only
func Insert[T any](ctx context.Context, d *Database, rows []T) error {
	if !d.Configured() {
		return ErrNotConfigured
	}
	if len(rows) == 0 {
		return nil
	}
	if err := d.DB.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// Count returns the number of rows in table
func (d *Database) Count(ctx context.Context, table string) (int64, error) {
	if !d.Configured() {
		return 0, ErrNotConfigured
	}
	var n int64
	if err := d.DB.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// TableTotal is the row count and money total of one table
type TableTotal struct {
	Count int64
	Total decimal.Decimal
}

// Summarize counts the rows of table and sums column over them.
// With an empty column only the count is taken and Total is zero.
func (d *Database) Summarize(ctx context.Context, table, column string) (TableTotal, error) {
	if !d.Configured() {
		return TableTotal{}, ErrNotConfigured
	}
	if column == "" {
		n, err := d.Count(ctx, table)
		return TableTotal{Count: n, Total: decimal.Zero}, err
	}

	var out struct {
		Count int64
		Total decimal.NullDecimal
	}
	err := d.DB.WithContext(ctx).
		Table(table).
		Select("COUNT(*) AS count, SUM(?) AS total", clause.Column{Name: column}).
		Scan(&out).Error
	if err != nil {
		return TableTotal{}, fmt.Errorf("summarize %s: %w", table, err)
	}

	total := decimal.Zero
	if out.Total.Valid {
		total = out.Total.Decimal
	}
	return TableTotal{Count: out.Count, Total: total}, nil
}
