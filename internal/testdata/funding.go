// Package testdata generates realistic funding statements for tests.
package testdata

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
)

// Headers is the column layout of generated statements
var Headers = []string{"Date", "Amount", "Type", "Currency", "Note"}

// Fiats is a small currency catalog matching the generated symbols
func Fiats() []fiat.Fiat {
	return []fiat.Fiat{
		{ID: 1, Symbol: "USD", Name: "US Dollar"},
		{ID: 2, Symbol: "EUR", Name: "Euro"},
		{ID: 3, Symbol: "GBP", Name: "British Pound"},
		{ID: 4, Symbol: "BRL", Name: "Brazilian Real"},
	}
}

// Record is one generated statement line
type Record struct {
	Date     time.Time
	Amount   decimal.Decimal
	Type     string
	Currency string
	Note     string
}

// Deposit reports whether the record is generated as incoming money
func (r Record) Deposit() bool {
	return r.Type == "IN"
}

// Generator generates statement records using gofakeit.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a fixed seed for reproducibility.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Record generates a single IN or OUT record. Withdrawals are written with a
// negative sign, as many exchanges export them.
func (g *Generator) Record() Record {
	fiats := Fiats()
	f := fiats[g.faker.Number(0, len(fiats)-1)]

	cents := int64(g.faker.Number(100, 500000))
	amount := decimal.New(cents, -2)
	kind := "IN"
	if g.faker.Bool() {
		kind = "OUT"
		amount = amount.Neg()
	}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	date := g.faker.DateRange(start, end).UTC().Truncate(24 * time.Hour)

	return Record{
		Date:     date,
		Amount:   amount,
		Type:     kind,
		Currency: f.Symbol,
		Note:     g.faker.Company(),
	}
}

// Records generates n records
func (g *Generator) Records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = g.Record()
	}
	return out
}

// Noise generates n records of a kind that should be ignored on import
func (g *Generator) Noise(n int) []Record {
	out := g.Records(n)
	for i := range out {
		out[i].Type = "FEE"
	}
	return out
}

// CSV renders records with the given delimiter and dd/MM/yyyy dates
func CSV(records []Record, delimiter rune) []byte {
	sep := string(delimiter)
	var b bytes.Buffer
	b.WriteString(strings.Join(Headers, sep))
	b.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%s%s%s%s%s%s%s%s%s\n",
			r.Date.Format("02/01/2006"), sep,
			r.Amount.String(), sep,
			r.Type, sep,
			r.Currency, sep,
			strings.ReplaceAll(r.Note, sep, " "),
		)
	}
	return b.Bytes()
}

// Workbook renders records as an XLSX file with dates stored as cells of
// date type, which excelize writes as serial numbers.
func Workbook(records []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for c, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, r := range records {
		amount, _ := r.Amount.Float64()
		values := []any{r.Date, amount, r.Type, r.Currency, r.Note}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
