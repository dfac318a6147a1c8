package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadExcel parses the first worksheet of an XLSX workbook into a Sheet.
// Cells are read raw so date cells arrive as serial day numbers.
func ReadExcel(r io.Reader, opts ReadOptions) (*Sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{
		RawCellValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheet found: %w", ErrEmptyFile)
	}

	// First sheet by position, whatever its name
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	if opts.SkipLines > 0 {
		if opts.SkipLines >= len(rows) {
			return nil, ErrEmptyFile
		}
		rows = rows[opts.SkipLines:]
	}

	sheet, err := newSheet(rows)
	if err != nil {
		return nil, err
	}
	sheet.Format = FormatExcel
	return sheet, nil
}
