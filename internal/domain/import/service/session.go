package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/sniffer"
)

// probeSamples caps how many date cells are inspected for encoding hints
const probeSamples = 20

// Session is the state of one file import flow. It is not safe for
// concurrent use.
type Session struct {
	ID uuid.UUID

	processor *Processor
	catalog   *fiat.Catalog
	logger    *slog.Logger

	fileName   string
	sheet      *parser.Sheet
	fileConfig *sniffer.FileConfig

	mapper        *mapping.Mapper
	classifier    *mapping.Classifier
	dates         parser.DateSettings
	exchange      string
	defaultFiatID int64
	preview       []ProcessedRow
}

func newSession(processor *Processor, catalog *fiat.Catalog, keywords *mapping.KeywordEngine, logger *slog.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:         id,
		processor:  processor,
		catalog:    catalog,
		logger:     logger.With(slog.String("session_id", id.String())),
		mapper:     mapping.NewMapper(),
		classifier: mapping.NewClassifier(keywords),
		dates:      parser.DefaultDateSettings(),
	}
}

// LoadFile parses an uploaded CSV or XLSX file. The first row holds the
// headers. Every setting of the previous file is reset, even when parsing
// fails.
func (s *Session) LoadFile(ctx context.Context, name string, r io.Reader) error {
	return s.LoadFileWithOptions(ctx, name, r, sniffer.DetectOptions{})
}

// LoadFileWithOptions is LoadFile with a header row index and, for CSV, a
// delimiter chosen by the user instead of detected.
func (s *Session) LoadFileWithOptions(ctx context.Context, name string, r io.Reader, opts sniffer.DetectOptions) error {
	s.reset()
	s.fileName = ""
	s.sheet = nil
	s.fileConfig = nil

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return parser.ErrEmptyFile
	}

	format, err := parser.DetectFormat(name, data)
	if err != nil {
		return err
	}

	var sheet *parser.Sheet
	switch format {
	case parser.FormatExcel:
		sheet, err = parser.ReadExcel(bytes.NewReader(data), parser.ReadOptions{SkipLines: max(opts.HeaderRowIndex, 0)})
	default:
		data = normalizeCSVBytes(data)
		cfg, detectErr := sniffer.DetectConfigWithOptions(data, opts)
		if detectErr != nil {
			return fmt.Errorf("failed to analyze %s: %w", name, detectErr)
		}
		s.fileConfig = cfg
		sheet, err = parser.ReadCSV(bytes.NewReader(data), cfg.ReadOptions())
	}
	if err != nil {
		return err
	}

	s.fileName = name
	s.sheet = sheet

	attrs := []any{
		slog.String("file", name),
		slog.String("format", string(sheet.Format)),
		slog.Int("rows", len(sheet.Rows)),
		slog.Int("columns", len(sheet.Headers)),
	}
	if s.fileConfig != nil {
		attrs = append(attrs,
			slog.String("delimiter", string(s.fileConfig.Delimiter)),
			slog.String("fingerprint", s.fileConfig.Fingerprint),
		)
	}
	s.logger.InfoContext(ctx, "file loaded", attrs...)
	return nil
}

// reset clears every per-file setting
func (s *Session) reset() {
	s.mapper.Reset()
	s.classifier.Reset()
	s.dates = parser.DefaultDateSettings()
	s.exchange = ""
	s.defaultFiatID = 0
	s.preview = nil
}

// FileName returns the loaded file name
func (s *Session) FileName() string {
	return s.fileName
}

// Headers returns the column headers of the loaded file
func (s *Session) Headers() []string {
	if s.sheet == nil {
		return nil
	}
	return append([]string(nil), s.sheet.Headers...)
}

// Rows returns the raw rows of the loaded file
func (s *Session) Rows() []parser.RawRow {
	if s.sheet == nil {
		return nil
	}
	return s.sheet.Rows
}

// FileConfig returns what was detected about a CSV file; nil for workbooks
func (s *Session) FileConfig() *sniffer.FileConfig {
	return s.fileConfig
}

// Fingerprint identifies the header layout of the loaded CSV file, so a
// caller can recognise a statement format it has mapped before. Empty for
// workbooks.
func (s *Session) Fingerprint() string {
	if s.fileConfig == nil {
		return ""
	}
	return s.fileConfig.Fingerprint
}

// SampleRows returns the first data lines of the loaded CSV file as split by
// the detected delimiter
func (s *Session) SampleRows() [][]string {
	if s.fileConfig == nil {
		return nil
	}
	return s.fileConfig.SampleRows
}

// Catalog returns the currencies loaded for this session
func (s *Session) Catalog() *fiat.Catalog {
	return s.catalog
}

// Mapping returns the current column mapping
func (s *Session) Mapping() mapping.ColumnMapping {
	return s.mapper.Mapping()
}

// UpdateMapping assigns header to field. Changing the kind column recomputes
// the distinct kind values and resets their buckets.
func (s *Session) UpdateMapping(field mapping.Field, header string) error {
	changed, err := s.mapper.Update(field, header)
	if err != nil {
		return err
	}
	if changed {
		s.preview = nil
		if field == mapping.FieldKind {
			s.classifier.Recompute(s.Rows(), header)
		}
	}
	return nil
}

// ApplyMapping replaces the whole column mapping
func (s *Session) ApplyMapping(m mapping.ColumnMapping) {
	previous := s.mapper.Mapping()
	s.mapper.Apply(m)
	if previous == m {
		return
	}
	s.preview = nil
	if previous.Kind != m.Kind {
		s.classifier.Recompute(s.Rows(), m.Kind)
	}
}

// SuggestMapping proposes a column mapping from the header names
func (s *Session) SuggestMapping() mapping.ColumnMapping {
	return sniffer.SuggestMapping(s.Headers())
}

// SuggestDateSettings proposes an encoding from the mapped date column
func (s *Session) SuggestDateSettings() parser.DateSettings {
	header := s.mapper.Mapping().Date
	if header == "" {
		return parser.DefaultDateSettings()
	}

	var samples []string
	for _, row := range s.Rows() {
		if v, ok := row.Value(header); ok {
			samples = append(samples, v)
			if len(samples) == probeSamples {
				break
			}
		}
	}
	return sniffer.ProbeDateEncoding(samples)
}

// KindValues returns the distinct values of the kind column
func (s *Session) KindValues() []string {
	return s.classifier.Values()
}

// KindMapping returns the bucket of every distinct kind value
func (s *Session) KindMapping() mapping.KindMapping {
	return s.classifier.Mapping()
}

// AssignKind moves a kind value into bucket
func (s *Session) AssignKind(value string, bucket mapping.Bucket) error {
	if err := s.classifier.Assign(value, bucket); err != nil {
		return err
	}
	s.preview = nil
	return nil
}

// SuggestKinds proposes buckets for kind values still ignored
func (s *Session) SuggestKinds() mapping.KindMapping {
	return s.classifier.Suggest()
}

// ApplyKindSuggestions assigns every suggested bucket
func (s *Session) ApplyKindSuggestions() int {
	n := s.classifier.ApplySuggestions()
	if n > 0 {
		s.preview = nil
	}
	return n
}

// DateSettings returns the declared date encoding
func (s *Session) DateSettings() parser.DateSettings {
	return s.dates
}

// SetDateSettings declares how the date column is encoded
func (s *Session) SetDateSettings(settings parser.DateSettings) error {
	if !settings.Type.Valid() {
		return fmt.Errorf("unknown date type %q", settings.Type)
	}
	s.dates = settings
	s.preview = nil
	return nil
}

// Exchange returns the exchange shared by every row
func (s *Session) Exchange() string {
	return s.exchange
}

// SetExchange names the exchange shared by every row
func (s *Session) SetExchange(name string) {
	s.exchange = name
	s.preview = nil
}

// DefaultFiat returns the fallback fiat id, 0 when unset
func (s *Session) DefaultFiat() int64 {
	return s.defaultFiatID
}

// SetDefaultFiat sets the fiat used for rows without a currency. 0 clears it.
func (s *Session) SetDefaultFiat(id int64) error {
	if id != 0 {
		if _, ok := s.catalog.ByID(id); !ok {
			return fmt.Errorf("%w: %d", fiat.ErrUnknownFiat, id)
		}
	}
	s.defaultFiatID = id
	s.preview = nil
	return nil
}

// Preview generates the preview rows from the current settings
func (s *Session) Preview(ctx context.Context) ([]ProcessedRow, error) {
	if s.sheet == nil {
		return nil, ErrNoFile
	}

	rows, err := s.processor.Preview(ctx, s.sheet.Rows, PreviewInput{
		Mapping:  s.mapper.Mapping(),
		Dates:    s.dates,
		Kinds:    s.classifier.Mapping(),
		Resolver: fiat.NewResolver(s.catalog, s.defaultFiatID),
		Exchange: s.exchange,
	})
	if err != nil {
		s.preview = nil
		return nil, err
	}

	s.preview = rows
	return s.PreviewRows(), nil
}

// PreviewRows returns a copy of the current preview
func (s *Session) PreviewRows() []ProcessedRow {
	return append([]ProcessedRow(nil), s.preview...)
}

// RemoveRow drops preview row i
func (s *Session) RemoveRow(i int) error {
	if i < 0 || i >= len(s.preview) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	s.preview = append(s.preview[:i], s.preview[i+1:]...)
	return nil
}

// UpdateRowCurrency corrects the currency of preview row i
func (s *Session) UpdateRowCurrency(i int, fiatID int64) error {
	if i < 0 || i >= len(s.preview) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}

	res, err := fiat.NewResolver(s.catalog, 0).ResolveID(fiatID)
	if err != nil {
		return err
	}

	row := &s.preview[i]
	row.FiatID = res.FiatID
	row.Currency = res.Symbol
	row.IsCurrencyValid = true
	return nil
}

// SuggestCurrencies ranks fiats resembling the currency token of preview row i
func (s *Session) SuggestCurrencies(i, limit int) ([]fiat.Fiat, error) {
	if i < 0 || i >= len(s.preview) {
		return nil, fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	return s.catalog.Suggest(s.preview[i].Currency, limit), nil
}

// Submit imports the preview through c. On success the session is cleared
// for the next file.
func (s *Session) Submit(ctx context.Context, c *Coordinator) (int, error) {
	if s.preview == nil {
		return 0, ErrNoPreview
	}

	count, err := c.Import(ctx, s.preview)
	if err != nil {
		return 0, err
	}

	s.reset()
	s.fileName = ""
	s.sheet = nil
	s.fileConfig = nil
	return count, nil
}
