// Package parser turns uploaded CSV and Excel files into raw header-keyed rows
// and interprets the cell encodings (dates, amounts) found in them.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyFile is returned when a file has no data rows below its header
	ErrEmptyFile = errors.New("the file appears to be empty")
	// ErrUnsupportedFormat is returned for containers other than CSV and XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format identifies the container format of an uploaded file
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// zipMagic prefixes every XLSX workbook.
var zipMagic = []byte("PK\x03\x04")

// RawRow maps a column header to the raw cell text. Empty cells are absent.
type RawRow map[string]string

// Value returns the cell under header. ok is false for a missing or blank cell.
func (r RawRow) Value(header string) (string, bool) {
	v, ok := r[header]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Sheet is the parsed content of one uploaded file
type Sheet struct {
	Format  Format
	Headers []string
	Rows    []RawRow
}

// ReadOptions configures how a file is read
type ReadOptions struct {
	Delimiter rune // CSV delimiter (default: ',')
	SkipLines int  // Lines to skip before the header row
}

// DetectFormat picks the container format from the file name, then from the
// leading bytes when the extension is unknown.
func DetectFormat(name string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	case ".xls", ".ods", ".numbers":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}

	if bytes.HasPrefix(head, zipMagic) {
		return FormatExcel, nil
	}
	return FormatCSV, nil
}

// ReadFile reads a whole uploaded file and parses it according to its format.
// The first row after any skipped lines is the header row.
func ReadFile(name string, r io.Reader, opts ReadOptions) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatExcel:
		return ReadExcel(bytes.NewReader(data), opts)
	default:
		return ReadCSV(bytes.NewReader(data), opts)
	}
}

// ReadCSV parses delimited text into a Sheet
func ReadCSV(r io.Reader, opts ReadOptions) (*Sheet, error) {
	if opts.SkipLines > 0 {
		r = skipLines(r, opts.SkipLines)
	}

	reader := gocsv.LazyCSVReader(r)
	if cr, ok := reader.(*csv.Reader); ok {
		if opts.Delimiter != 0 {
			cr.Comma = opts.Delimiter
		}
		cr.FieldsPerRecord = -1 // Variable field count
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	sheet, err := newSheet(records)
	if err != nil {
		return nil, err
	}
	sheet.Format = FormatCSV
	return sheet, nil
}

// newSheet turns positional records into header-keyed rows. Blank rows are
// skipped and repeated headers get a numeric suffix so no column is lost.
func newSheet(records [][]string) (*Sheet, error) {
	headerIdx := -1
	for i, rec := range records {
		if !isBlank(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptyFile
	}

	headers := uniqueHeaders(records[headerIdx])

	rows := make([]RawRow, 0, len(records)-headerIdx-1)
	for _, rec := range records[headerIdx+1:] {
		if isBlank(rec) {
			continue
		}
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			if rec[i] == "" {
				continue
			}
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	compact := make([]string, 0, len(headers))
	for _, h := range headers {
		if h != "" {
			compact = append(compact, h)
		}
	}

	return &Sheet{Headers: compact, Rows: rows}, nil
}

func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		name := h
		if n, dup := seen[h]; dup {
			name = h + "_" + strconv.Itoa(n)
		}
		seen[h]++
		out[i] = name
	}
	return out
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseAmount coerces a raw cell to a decimal amount. It accepts an optional
// sign, a decimal point and an exponent; anything else is rejected.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// skipLines returns a reader that skips the first n lines
func skipLines(r io.Reader, n int) io.Reader {
	return &lineSkipper{reader: r, skip: n}
}

type lineSkipper struct {
	reader  io.Reader
	skip    int
	skipped bool
}

func (ls *lineSkipper) Read(p []byte) (int, error) {
	if !ls.skipped {
		buf := make([]byte, 1)
		lines := 0
		for lines < ls.skip {
			n, err := ls.reader.Read(buf)
			if err != nil {
				return 0, err
			}
			if n > 0 && buf[0] == '\n' {
				lines++
			}
		}
		ls.skipped = true
	}
	return ls.reader.Read(p)
}
