package csvimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayouts are tried in order when parsing a date cell. Slash and dash
// dates are day first.
var DateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 Jan 2006",
	"2-Jan-2006",
	time.RFC3339,
}

var currencyMarks = []string{"₹", "$", "€", "£", "INR", "Rs.", "Rs", "rs."}

// CleanString trims and collapses runs of whitespace
func CleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseDecimal parses a money or quantity cell. Currency marks, thousands separators
// and spaces are stripped; "(1,200)" is negative. A blank cell reports ok=false.
func ParseDecimal(s string) (d decimal.Decimal, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, false, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}

	d, err = decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("not a number")
	}
	if negative {
		d = d.Neg()
	}
	return d, true, nil
}

// ParseDate parses a date cell with DateLayouts. A blank cell reports ok=false.
func ParseDate(s string) (t time.Time, ok bool, err error) {
	s = CleanString(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised date, expected YYYY-MM-DD or DD/MM/YYYY")
}

// FieldReader pulls typed values out of a row and records what failed
type FieldReader struct {
	row  *Row
	errs []RowError
}

// NewFieldReader creates a FieldReader over row
func NewFieldReader(row *Row) *FieldReader {
	return &FieldReader{row: row}
}

// Line returns the file line of the row being read
func (f *FieldReader) Line() int {
	return f.row.LineNumber
}

// String returns the cleaned text of a column
func (f *FieldReader) String(col string) string {
	return CleanString(f.row.Get(col))
}

// Required is String plus a required-field error when the cell is blank
func (f *FieldReader) Required(col string) string {
	v := f.String(col)
	if v == "" {
		f.Fail(col, ErrCodeImportRequired, fmt.Sprintf("field '%s' is required", col), "")
	}
	return v
}

// Decimal returns the number in col; blanks are zero
func (f *FieldReader) Decimal(col string) decimal.Decimal {
	raw := f.row.Get(col)
	d, _, err := ParseDecimal(raw)
	if err != nil {
		f.Fail(col, ErrCodeImportInvalidType, "expected a number", raw)
	}
	return d
}

// Date returns the date in col; a blank cell yields the zero time
func (f *FieldReader) Date(col string) time.Time {
	raw := f.row.Get(col)
	t, _, err := ParseDate(raw)
	if err != nil {
		f.Fail(col, ErrCodeImportInvalidType, err.Error(), raw)
	}
	return t
}

// OptionalDate returns nil for a blank cell
func (f *FieldReader) OptionalDate(col string) *time.Time {
	raw := f.row.Get(col)
	t, ok, err := ParseDate(raw)
	if err != nil {
		f.Fail(col, ErrCodeImportInvalidType, err.Error(), raw)
		return nil
	}
	if !ok {
		return nil
	}
	return &t
}

// UUID returns nil for a blank cell
func (f *FieldReader) UUID(col string) *uuid.UUID {
	raw := strings.TrimSpace(f.row.Get(col))
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		f.Fail(col, ErrCodeImportInvalidType, "expected a UUID", raw)
		return nil
	}
	return &id
}

// Fail records an error against col
func (f *FieldReader) Fail(col, code, message, value string) {
	f.errs = append(f.errs, RowError{
		Row:     f.row.LineNumber,
		Column:  col,
		Code:    code,
		Message: message,
		Value:   value,
	})
}

// Errors returns every error recorded so far
func (f *FieldReader) Errors() []RowError {
	return f.errs
}
