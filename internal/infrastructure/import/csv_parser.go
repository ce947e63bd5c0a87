// Package csvimport parses spreadsheet exports into rows and cleans their fields.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVParser reads a header row followed by data rows
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	encoding   encoding.Encoding
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes toggles lenient quote handling (default on)
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithEncoding decodes input from enc, such as charmap.Windows1252 for
// legacy spreadsheet exports. A byte order mark still takes precedence.
func WithEncoding(enc encoding.Encoding) ParserOption {
	return func(p *CSVParser) {
		p.encoding = enc
	}
}

// LookupEncoding resolves a WHATWG encoding label such as "windows-1252",
// "latin1" or "utf-16le". UTF-8 labels resolve to nil, the parser default.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// NewCSVParser creates a parser over r. Byte order marks are honoured, so
// UTF-16 exports decode without options. Input must otherwise be UTF-8 unless
// WithEncoding names another charset.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{
		delimiter:  ',',
		lazyQuotes: true,
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	var fallback transform.Transformer = transform.Nop
	if p.encoding != nil {
		fallback = p.encoding.NewDecoder()
	}
	buf := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(fallback)))

	sample, err := buf.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(sample) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(buf)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// validPrefix reports whether b is UTF-8, allowing a rune cut off by the peek window
func validPrefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

// NormalizeHeader maps "Purchase Date", "purchase-date" and "PURCHASE_DATE" to purchase_date
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	sep := false
	for _, r := range h {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			sep = true
		case r == '(' || r == ')' || r == '#':
		default:
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseHeader reads the header row and normalizes its names
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := NormalizeHeader(h)
		p.headers[i] = name
		if _, dup := p.headerMap[name]; !dup && name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a normalized header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// ValidateHeaders returns the required headers missing from the file
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data line keyed by normalized header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed value of a column, empty when absent
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row; io.EOF marks the end of the file
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	p.totalRows++

	row := &Row{LineNumber: p.currentRow, Data: make(map[string]string, len(p.headerMap))}
	for name, i := range p.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads the remaining rows, skipping blank lines. Malformed rows
// are reported through onError and skipped.
func (p *CSVParser) ReadAllRows(onError func(line int, err error)) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if onError != nil && errors.As(err, &parseErr) {
				onError(p.currentRow, err)
				continue
			}
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// TotalRows returns the number of data rows read so far
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}
