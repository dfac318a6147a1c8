package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/metrics"
)

const tracerName = "github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/service"

// ProcessedRow is a validated, typed record derived from one raw row. Invalid
// dates, amounts and currencies are flagged rather than dropped.
type ProcessedRow struct {
	OriginalIndex   int             `json:"originalIndex"`
	Date            string          `json:"date"`
	OriginalDateRaw string          `json:"originalDateRaw"`
	Amount          decimal.Decimal `json:"amount"`
	AmountRaw       string          `json:"amountRaw"`
	Currency        string          `json:"currency"`
	Kind            fiatramp.Kind   `json:"kind"`
	Exchange        string          `json:"exchange"`
	IsDateValid     bool            `json:"isDateValid"`
	IsAmountValid   bool            `json:"isAmountValid"`
	IsCurrencyValid bool            `json:"isCurrencyValid"`
	FiatID          int64           `json:"fiatId"`

	parsedDate time.Time
}

// AmountText is the absolute amount, or the raw cell when it is not numeric
func (r ProcessedRow) AmountText() string {
	if r.IsAmountValid {
		return r.Amount.String()
	}
	return r.AmountRaw
}

// ParsedDate returns the interpreted date; zero when IsDateValid is false
func (r ProcessedRow) ParsedDate() time.Time {
	return r.parsedDate
}

// Problem returns the first reason the row cannot be imported
func (r ProcessedRow) Problem() (RowProblem, bool) {
	switch {
	case !r.IsDateValid:
		return ProblemDate, true
	case !r.IsAmountValid:
		return ProblemAmount, true
	case !r.IsCurrencyValid:
		return ProblemCurrency, true
	}
	return "", false
}

// PreviewInput is everything a preview depends on besides the raw rows
type PreviewInput struct {
	Mapping  mapping.ColumnMapping
	Dates    parser.DateSettings
	Kinds    mapping.KindMapping
	Resolver *fiat.Resolver
	Exchange string
}

// Processor turns raw rows into preview rows
type Processor struct {
	dates   *parser.DateInterpreter
	metrics *metrics.ImportMetrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewProcessor creates a processor interpreting dates with dates
func NewProcessor(dates *parser.DateInterpreter, m *metrics.ImportMetrics, logger *slog.Logger) *Processor {
	if m == nil {
		m = metrics.NewImportMetrics(nil)
	}
	return &Processor{
		dates:   dates,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// Dates returns the date interpreter
func (p *Processor) Dates() *parser.DateInterpreter {
	return p.dates
}

// Preview maps every raw row whose kind value is bucketed deposit or withdraw
// to a ProcessedRow. Rows with a blank or ignored kind are dropped silently.
//
// It returns a *ConfigError when date, amount or kind is unmapped, and
// ErrNoRecords when no row survives the kind filter.
func (p *Processor) Preview(ctx context.Context, rows []parser.RawRow, in PreviewInput) ([]ProcessedRow, error) {
	_, span := p.tracer.Start(ctx, "import.Preview", trace.WithAttributes(
		attribute.Int("rows.input", len(rows)),
		attribute.String("date.type", string(in.Dates.Type)),
	))
	defer span.End()

	if missing := in.Mapping.Missing(); len(missing) > 0 {
		err := &ConfigError{Missing: missing}
		p.metrics.PreviewErrors.WithLabelValues("unmapped").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resolver := in.Resolver
	if resolver == nil {
		resolver = fiat.NewResolver(nil, 0)
	}

	out := make([]ProcessedRow, 0, len(rows))
	invalid := 0
	for i, row := range rows {
		kindRaw, ok := row.Value(in.Mapping.Kind)
		if !ok {
			continue
		}
		var kind fiatramp.Kind
		switch in.Kinds[kindRaw] {
		case mapping.BucketDeposit:
			kind = fiatramp.KindDeposit
		case mapping.BucketWithdraw:
			kind = fiatramp.KindWithdraw
		default:
			continue
		}

		pr := ProcessedRow{
			OriginalIndex: i,
			Kind:          kind,
			Exchange:      in.Exchange,
		}

		pr.AmountRaw = row[in.Mapping.Amount]
		if amount, ok := parser.ParseAmount(pr.AmountRaw); ok {
			pr.Amount = amount.Abs()
			pr.IsAmountValid = true
		}

		pr.OriginalDateRaw = row[in.Mapping.Date]
		if t, ok := p.dates.Parse(pr.OriginalDateRaw, in.Dates); ok {
			pr.parsedDate = t
			pr.Date = parser.FormatDate(t)
			pr.IsDateValid = true
		} else {
			pr.Date = parser.InvalidDate
		}

		var currencyRaw string
		if in.Mapping.Currency != "" {
			currencyRaw = row[in.Mapping.Currency]
		}
		res := resolver.Resolve(currencyRaw)
		pr.Currency = res.Symbol
		pr.FiatID = res.FiatID
		pr.IsCurrencyValid = res.Valid

		if _, bad := pr.Problem(); bad {
			invalid++
		}
		out = append(out, pr)
	}

	dropped := len(rows) - len(out)
	p.metrics.PreviewRows.WithLabelValues("kept").Add(float64(len(out) - invalid))
	p.metrics.PreviewRows.WithLabelValues("invalid").Add(float64(invalid))
	p.metrics.PreviewRows.WithLabelValues("dropped").Add(float64(dropped))
	span.SetAttributes(
		attribute.Int("rows.output", len(out)),
		attribute.Int("rows.invalid", invalid),
	)

	if len(out) == 0 {
		p.metrics.PreviewErrors.WithLabelValues("no_records").Inc()
		span.SetStatus(codes.Error, ErrNoRecords.Error())
		return nil, ErrNoRecords
	}

	p.logger.DebugContext(ctx, "preview generated",
		slog.Int("rows", len(rows)),
		slog.Int("kept", len(out)),
		slog.Int("dropped", dropped),
		slog.Int("invalid", invalid),
	)
	return out, nil
}

// IsConfigError reports whether err is a *ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
