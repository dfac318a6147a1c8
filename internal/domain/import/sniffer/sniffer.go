// Package sniffer inspects uploaded files to propose reading options, a
// column mapping and a date encoding. Proposals never apply themselves.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
)

// FileConfig holds the detected configuration for a CSV/TSV file
type FileConfig struct {
	Delimiter   rune       // The field delimiter (';', ',', '\t', '|')
	SkipLines   int        // Number of lines before the header row
	Headers     []string   // Header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// ReadOptions converts the detected configuration into parser options
func (c *FileConfig) ReadOptions() parser.ReadOptions {
	return parser.ReadOptions{Delimiter: c.Delimiter, SkipLines: c.SkipLines}
}

// DetectOptions allows callers to override the header row or delimiter.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based index for the header row
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero
	Delimiter rune
}

// ErrNoHeadersFound is returned when the header row index is past the end of the file
var ErrNoHeadersFound = errors.New("could not find data headers")

const sampleSize = 5

// DetectConfig analyzes a CSV/TSV file whose first row holds the headers
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, DetectOptions{})
}

// DetectConfigWithOptions analyzes a CSV/TSV file with overrides. Without a
// delimiter override the header line decides; a single-column file gets ','.
func DetectConfigWithOptions(data []byte, opts DetectOptions) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, parser.ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	skipLines := max(opts.HeaderRowIndex, 0)
	if skipLines >= len(lines) {
		return nil, ErrNoHeadersFound
	}

	headerLine := cleanLine(lines[skipLines], skipLines == 0)
	if headerLine == "" {
		return nil, ErrNoHeadersFound
	}

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter, _ = detectDelimiter(headerLine)
		if delimiter == 0 {
			delimiter = ','
		}
	}

	reader := csv.NewReader(strings.NewReader(headerLine))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
		SampleRows:  getSampleRows(data, delimiter, skipLines+1, sampleSize),
	}, nil
}

// Header keywords per field, in English, Portuguese and Spanish
var (
	dateKeywords     = []string{"date", "data", "fecha", "day", "dia", "time", "timestamp"}
	amountKeywords   = []string{"amount", "amt", "valor", "montante", "importe", "value", "quantia", "total"}
	currencyKeywords = []string{"currency", "ccy", "moeda", "divisa", "moneda", "fiat"}
	kindKeywords     = []string{"kind", "type", "tipo", "direction", "side", "operation", "operação", "operacao", "movimento"}
)

// SuggestMapping proposes a column for each field from header names. A
// header is used at most once; exact names beat partial matches.
func SuggestMapping(headers []string) mapping.ColumnMapping {
	used := make(map[int]bool)
	pick := func(keywords []string) string {
		best, bestScore := -1, 0
		for i, header := range headers {
			if used[i] {
				continue
			}
			h := strings.ToLower(strings.TrimSpace(header))
			if h == "" {
				continue
			}
			for _, kw := range keywords {
				score := 0
				switch {
				case h == kw:
					score = 3
				case strings.HasPrefix(h, kw) || strings.HasSuffix(h, kw):
					score = 2
				case len(kw) > 3 && strings.Contains(h, kw):
					score = 1
				}
				if score > bestScore {
					best, bestScore = i, score
				}
			}
		}
		if best < 0 {
			return ""
		}
		used[best] = true
		return headers[best]
	}

	var m mapping.ColumnMapping
	m.Date = pick(dateKeywords)
	m.Amount = pick(amountKeywords)
	m.Kind = pick(kindKeywords)
	m.Currency = pick(currencyKeywords)
	return m
}

// Plausible numeric ranges per encoding
const (
	excelMin  = 1       // 1900-01-01
	excelMax  = 2958465 // 9999-12-31
	secondMin = 1e8     // 1973
	secondMax = 1e11    // 5138
	milliMin  = 1e11
	milliMax  = 1e14
)

// ProbeDateEncoding proposes DateSettings from sample cells of the date
// column. All-numeric samples are classified by magnitude; text samples with
// a day above 12 in first position get an explicit day-first format.
// Anything else stays on auto.
func ProbeDateEncoding(samples []string) parser.DateSettings {
	var numbers []float64
	var texts []string
	for _, s := range samples {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			numbers = append(numbers, f)
		} else {
			texts = append(texts, s)
		}
	}

	switch {
	case len(numbers) > 0 && len(texts) == 0:
		return probeNumeric(numbers)
	case len(texts) > 0 && len(numbers) == 0:
		return probeText(texts)
	}
	return parser.DefaultDateSettings()
}

func probeNumeric(values []float64) parser.DateSettings {
	in := func(lo, hi float64) bool {
		for _, v := range values {
			if v < lo || v > hi {
				return false
			}
		}
		return true
	}

	switch {
	case in(excelMin, excelMax):
		return parser.DateSettings{Type: parser.DateExcel}
	case in(secondMin, secondMax):
		return parser.DateSettings{Type: parser.DateTimestampSecond}
	case in(milliMin, milliMax):
		return parser.DateSettings{Type: parser.DateTimestampMilli}
	}
	return parser.DefaultDateSettings()
}

func probeText(values []string) parser.DateSettings {
	var sep rune
	dayFirst := false
	for _, v := range values {
		s, ok := dateSeparator(v)
		if !ok || (sep != 0 && s != sep) {
			return parser.DefaultDateSettings()
		}
		sep = s
		if analyzeDateFormat(v) {
			dayFirst = true
		}
	}
	if !dayFirst {
		return parser.DefaultDateSettings()
	}

	d := string(sep)
	return parser.DateSettings{Type: parser.DateString, Format: "dd" + d + "MM" + d + "yyyy"}
}

// dateSeparator reports the separator of a d/m/yyyy style value
func dateSeparator(v string) (rune, bool) {
	for _, sep := range []rune{'/', '-', '.'} {
		parts := strings.Split(v, string(sep))
		if len(parts) != 3 {
			continue
		}
		if len(parts[0]) > 2 || len(parts[1]) > 2 || len(parts[2]) != 4 {
			return 0, false
		}
		for _, p := range parts {
			if _, err := strconv.Atoi(p); err != nil {
				return 0, false
			}
		}
		return sep, true
	}
	return 0, false
}

// analyzeDateFormat returns true if the date is definitely DD-first (day > 12)
func analyzeDateFormat(dateVal string) bool {
	parts := strings.FieldsFunc(dateVal, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})

	if len(parts) >= 2 {
		firstPart := strings.TrimSpace(parts[0])
		var day int
		for _, c := range firstPart {
			if c >= '0' && c <= '9' {
				day = day*10 + int(c-'0')
			} else {
				break
			}
		}
		if day > 12 && day <= 31 {
			return true
		}
	}
	return false
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// generateFingerprint creates a hash from normalized header names so a
// repeated export layout can be recognized
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	joined := strings.Join(normalized, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first N data rows after the header
func getSampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		if lineNum >= startLine {
			rows = append(rows, record)
			if len(rows) >= maxRows {
				break
			}
		}
		lineNum++
	}

	return rows
}
