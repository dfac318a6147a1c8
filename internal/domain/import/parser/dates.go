package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DateType is the declared encoding of a date column
type DateType string

const (
	DateAuto            DateType = "auto"
	DateString          DateType = "string"
	DateTimestampSecond DateType = "timestamp_s"
	DateTimestampMilli  DateType = "timestamp_ms"
	DateExcel           DateType = "excel"
)

// Valid reports whether t is a known encoding
func (t DateType) Valid() bool {
	switch t {
	case DateAuto, DateString, DateTimestampSecond, DateTimestampMilli, DateExcel:
		return true
	}
	return false
}

// DateSettings pairs a date encoding with the format used when Type is DateString
type DateSettings struct {
	Type   DateType `json:"type"`
	Format string   `json:"formatStr"`
}

// DefaultDateSettings returns auto-detection
func DefaultDateSettings() DateSettings {
	return DateSettings{Type: DateAuto}
}

// DisplayLayout is the calendar date layout shown in previews and sent to the backend
const DisplayLayout = "2006-01-02"

// InvalidDate is displayed in place of a date that could not be interpreted
const InvalidDate = "Invalid Date"

// FormatDate renders t as yyyy-MM-dd
func FormatDate(t time.Time) string {
	return t.Format(DisplayLayout)
}

var (
	// ErrInvalidFormat is returned for a date pattern that cannot be translated
	ErrInvalidFormat = errors.New("invalid date format")

	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	// Same instant range a JavaScript Date can hold
	maxMillis = 8.64e15
)

// isoLayouts are tried before any candidate pattern in auto mode
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

type candidate struct {
	pattern string
	layout  string
}

// DateInterpreter parses raw cells into calendar dates under a DateSettings
// encoding. Patterns use Unicode/date-fns tokens (yyyy, MM, dd, HH, mm, ss, MMM).
type DateInterpreter struct {
	candidates []candidate
	loc        *time.Location

	mu     sync.Mutex
	layout map[string]layoutResult
}

type layoutResult struct {
	layout string
	err    error
}

// NewDateInterpreter builds an interpreter that tries formats, in order, during
// auto-detection. Wall-clock strings and timestamps are resolved in loc
// (UTC when nil).
func NewDateInterpreter(formats []string, loc *time.Location) (*DateInterpreter, error) {
	if loc == nil {
		loc = time.UTC
	}

	d := &DateInterpreter{
		loc:    loc,
		layout: make(map[string]layoutResult),
	}
	for _, f := range formats {
		layout, err := TranslateFormat(f)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: %w", f, err)
		}
		d.candidates = append(d.candidates, candidate{pattern: f, layout: layout})
	}
	return d, nil
}

// Formats returns the ordered auto-detection candidates
func (d *DateInterpreter) Formats() []string {
	out := make([]string, len(d.candidates))
	for i, c := range d.candidates {
		out[i] = c.pattern
	}
	return out
}

// Location returns the zone used for wall-clock strings and timestamps
func (d *DateInterpreter) Location() *time.Location {
	return d.loc
}

// Parse interprets raw under settings. ok is false for empty input, for input
// that does not match the encoding, and for any internal failure.
func (d *DateInterpreter) Parse(raw string, settings DateSettings) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	switch settings.Type {
	case DateExcel:
		serial, ok := parseNumber(s)
		if !ok {
			return time.Time{}, false
		}
		return fromMillis(excelEpoch, serial*86400000)

	case DateTimestampSecond:
		secs, ok := parseNumber(s)
		if !ok {
			return time.Time{}, false
		}
		t, ok := fromMillis(time.Unix(0, 0), secs*1000)
		return t.In(d.loc), ok

	case DateTimestampMilli:
		ms, ok := parseNumber(s)
		if !ok {
			return time.Time{}, false
		}
		t, ok := fromMillis(time.Unix(0, 0), ms)
		return t.In(d.loc), ok

	case DateString:
		if strings.TrimSpace(settings.Format) != "" {
			layout, err := d.translate(settings.Format)
			if err != nil {
				return time.Time{}, false
			}
			parsed, err := time.ParseInLocation(layout, s, d.loc)
			if err != nil {
				return time.Time{}, false
			}
			return parsed, true
		}
	}

	return d.detect(s)
}

// detect tries ISO 8601 first, then every candidate in order
func (d *DateInterpreter) detect(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, d.loc); err == nil {
			return t, true
		}
	}
	for _, c := range d.candidates {
		if t, err := time.ParseInLocation(c.layout, s, d.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *DateInterpreter) translate(pattern string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.layout[pattern]; ok {
		return r.layout, r.err
	}
	layout, err := TranslateFormat(pattern)
	d.layout[pattern] = layoutResult{layout: layout, err: err}
	return layout, err
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func fromMillis(base time.Time, ms float64) (time.Time, bool) {
	abs := float64(base.UnixMilli()) + ms
	if math.Abs(abs) > maxMillis {
		return time.Time{}, false
	}
	whole := math.Floor(abs)
	nanos := math.Round((abs - whole) * 1e6)
	return time.UnixMilli(int64(whole)).Add(time.Duration(nanos)).UTC(), true
}

// tokenLayouts maps pattern letter runs to Go reference layout fragments.
// Numeric fields use the unpadded forms, which accept one or two digits.
var tokenLayouts = map[string]string{
	"yyyy": "2006",
	"yy":   "06",
	"y":    "2006",
	"MMMM": "January",
	"MMM":  "Jan",
	"MM":   "1",
	"M":    "1",
	"dd":   "2",
	"d":    "2",
	"EEEE": "Monday",
	"EEE":  "Mon",
	"EE":   "Mon",
	"E":    "Mon",
	"HH":   "15",
	"H":    "15",
	"hh":   "3",
	"h":    "3",
	"mm":   "4",
	"m":    "4",
	"ss":   "5",
	"s":    "5",
	"a":    "PM",
	"S":    "0",
	"SS":   "00",
	"SSS":  "000",
	"XXX":  "Z07:00",
	"XX":   "Z0700",
	"X":    "Z07",
	"xxx":  "-07:00",
	"xx":   "-0700",
}

// goReserved are fragments Go would read as layout elements if left in a literal
var goReserved = []string{"Jan", "Mon", "MST", "PM", "pm"}

// TranslateFormat converts a Unicode/date-fns date pattern into a Go layout.
// Letters must be known tokens; literal text goes in single quotes.
func TranslateFormat(pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("%w: empty pattern", ErrInvalidFormat)
	}

	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case r == '\'':
			end := i + 1
			var lit strings.Builder
			for end < len(runes) {
				if runes[end] == '\'' {
					if end+1 < len(runes) && runes[end+1] == '\'' {
						lit.WriteRune('\'')
						end += 2
						continue
					}
					break
				}
				lit.WriteRune(runes[end])
				end++
			}
			if end >= len(runes) {
				return "", fmt.Errorf("%w: unterminated quote in %q", ErrInvalidFormat, pattern)
			}
			if err := checkLiteral(lit.String()); err != nil {
				return "", err
			}
			if lit.Len() == 0 {
				b.WriteRune('\'')
			}
			b.WriteString(lit.String())
			i = end + 1

		case isLetter(r):
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			tok := string(runes[i:j])
			layout, ok := tokenLayouts[tok]
			if !ok {
				return "", fmt.Errorf("%w: unsupported token %q", ErrInvalidFormat, tok)
			}
			b.WriteString(layout)
			i = j

		default:
			if err := checkLiteral(string(r)); err != nil {
				return "", err
			}
			b.WriteRune(r)
			i++
		}
	}
	return b.String(), nil
}

func checkLiteral(lit string) error {
	for _, r := range lit {
		if r >= '0' && r <= '9' {
			return fmt.Errorf("%w: literal digits %q", ErrInvalidFormat, lit)
		}
	}
	for _, word := range goReserved {
		if strings.Contains(lit, word) {
			return fmt.Errorf("%w: literal %q", ErrInvalidFormat, lit)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
