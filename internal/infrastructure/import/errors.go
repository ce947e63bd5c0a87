package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeImportMalformedRow = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportRequired     = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType  = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportValidation   = "ERR_IMPORT_VALIDATION"
	ErrCodeImportInsert       = "ERR_IMPORT_INSERT"
)

var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file does not decode as text
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8 or a declared encoding")

	// ErrUnknownEncoding is returned for an encoding label that is not recognised
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrNoDataRows is returned when the CSV file has no data rows
	ErrNoDataRows = errors.New("CSV file contains no data rows")
)

// RowError is a problem with one row, optionally tied to a column
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	rows       map[int]struct{}
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection; maxErrors <= 0 means 100
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		rows:      make(map[int]struct{}),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.rows[err.Row] = struct{}{}
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddAll adds every error in errs
func (ec *ErrorCollection) AddAll(errs []RowError) {
	for _, e := range errs {
		ec.Add(e)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// RowCount returns how many distinct rows had at least one error
func (ec *ErrorCollection) RowCount() int {
	return len(ec.rows)
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a printable report of the collected errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
