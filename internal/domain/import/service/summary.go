package service

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/money"
)

// DefaultPageSize is the number of preview rows per page
const DefaultPageSize = 50

// CurrencyTotals sums the valid rows of one currency
type CurrencyTotals struct {
	Currency  string       `json:"currency"`
	Deposits  *money.Money `json:"deposits"`
	Withdraws *money.Money `json:"withdraws"`
	Rows      int          `json:"rows"`
}

// Summary describes a preview
type Summary struct {
	Rows            int              `json:"rows"`
	Valid           int              `json:"valid"`
	InvalidDates    int              `json:"invalid_dates"`
	InvalidAmounts  int              `json:"invalid_amounts"`
	InvalidCurrency int              `json:"invalid_currency"`
	Totals          []CurrencyTotals `json:"totals"`
}

// Summarize totals deposits and withdrawals per currency over the valid rows
// and counts each kind of invalid field. A row may count in several invalid
// buckets.
func Summarize(rows []ProcessedRow) (Summary, error) {
	s := Summary{Rows: len(rows)}
	byCurrency := make(map[string]*CurrencyTotals)

	for _, r := range rows {
		if !r.IsDateValid {
			s.InvalidDates++
		}
		if !r.IsAmountValid {
			s.InvalidAmounts++
		}
		if !r.IsCurrencyValid {
			s.InvalidCurrency++
		}
		if _, bad := r.Problem(); bad {
			continue
		}
		s.Valid++

		t, ok := byCurrency[r.Currency]
		if !ok {
			t = &CurrencyTotals{
				Currency:  r.Currency,
				Deposits:  money.Zero(r.Currency),
				Withdraws: money.Zero(r.Currency),
			}
			byCurrency[r.Currency] = t
		}
		t.Rows++

		amount := money.NewFromDecimal(r.Amount, r.Currency)
		var err error
		switch r.Kind {
		case fiatramp.KindDeposit:
			t.Deposits, err = t.Deposits.Add(amount)
		case fiatramp.KindWithdraw:
			t.Withdraws, err = t.Withdraws.Add(amount)
		}
		if err != nil {
			return Summary{}, fmt.Errorf("failed to total row %d: %w", r.OriginalIndex, err)
		}
	}

	s.Totals = make([]CurrencyTotals, 0, len(byCurrency))
	for _, t := range byCurrency {
		s.Totals = append(s.Totals, *t)
	}
	sort.Slice(s.Totals, func(i, j int) bool {
		return s.Totals[i].Currency < s.Totals[j].Currency
	})
	return s, nil
}

type exportRow struct {
	Row      int    `csv:"row"`
	Date     string `csv:"date"`
	RawDate  string `csv:"raw_date"`
	Amount   string `csv:"amount"`
	Currency string `csv:"currency"`
	Kind     string `csv:"kind"`
	Exchange string `csv:"exchange"`
	Valid    bool   `csv:"valid"`
}

// ExportCSV writes the preview rows as CSV with a header line. Row numbers
// are the 1-based positions in the source file.
func ExportCSV(w io.Writer, rows []ProcessedRow) error {
	out := make([]*exportRow, len(rows))
	for i, r := range rows {
		_, bad := r.Problem()
		out[i] = &exportRow{
			Row:      r.OriginalIndex + 1,
			Date:     r.Date,
			RawDate:  r.OriginalDateRaw,
			Amount:   r.AmountText(),
			Currency: r.Currency,
			Kind:     string(r.Kind),
			Exchange: r.Exchange,
			Valid:    !bad,
		}
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return fmt.Errorf("failed to export preview: %w", err)
	}
	return nil
}

// Page is one slice of the preview
type Page struct {
	Rows       []ProcessedRow `json:"rows"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
}

// Paginate returns page (1-based) of rows. Pages below 1 are clamped to the
// first, pages past the end to the last. size <= 0 uses DefaultPageSize.
func Paginate(rows []ProcessedRow, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	pages := (total + size - 1) / size
	if pages == 0 {
		return Page{Rows: []ProcessedRow{}, Page: 1, TotalPages: 0, Total: 0}
	}

	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page{
		Rows:       rows[start:end],
		Page:       page,
		TotalPages: pages,
		Total:      total,
	}
}
