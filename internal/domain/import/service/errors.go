package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
)

var (
	// ErrNoRecords is returned when every row was filtered out by the kind mapping
	ErrNoRecords = errors.New("no records found after filtering, check your kind mappings")
	// ErrNoFile is returned for operations that need a loaded file
	ErrNoFile = errors.New("no file loaded")
	// ErrRowIndex is returned for a preview row index out of range
	ErrRowIndex = errors.New("preview row index out of range")
	// ErrNoPreview is returned by operations that need a generated preview
	ErrNoPreview = errors.New("no preview generated")
)

// ConfigError reports required fields left unmapped. Preview refuses to run
// until they are mapped.
type ConfigError struct {
	Missing []mapping.Field
}

func (e *ConfigError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("please map at least date, amount and kind columns to preview (missing: %s)", strings.Join(names, ", "))
}

// RowProblem names why a preview row cannot be imported
type RowProblem string

const (
	ProblemDate     RowProblem = "date"
	ProblemAmount   RowProblem = "amount"
	ProblemCurrency RowProblem = "currency"
)

// RowError blocks an import because one row is not eligible. Index is the
// 0-based data row position in the source file; the message shows it 1-based.
type RowError struct {
	Index   int
	Problem RowProblem
}

func (e *RowError) Error() string {
	n := e.Index + 1
	switch e.Problem {
	case ProblemDate:
		return fmt.Sprintf("Row %d has an invalid date.", n)
	case ProblemAmount:
		return fmt.Sprintf("Row %d has an invalid amount.", n)
	default:
		return fmt.Sprintf("Row %d has an invalid or missing currency.", n)
	}
}
