// Package service orchestrates a file import: loading a spreadsheet, mapping
// its columns, previewing typed records and submitting them in bulk.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
)

// ImportService creates import sessions sharing one processor and coordinator
type ImportService struct {
	processor   *Processor
	coordinator *Coordinator
	currencies  fiat.Source
	keywords    *mapping.KeywordEngine
	logger      *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(processor *Processor, coordinator *Coordinator, currencies fiat.Source, logger *slog.Logger) *ImportService {
	return &ImportService{
		processor:   processor,
		coordinator: coordinator,
		currencies:  currencies,
		logger:      logger,
	}
}

// WithKeywordEngine enables kind bucket suggestions
func (s *ImportService) WithKeywordEngine(engine *mapping.KeywordEngine) *ImportService {
	s.keywords = engine
	return s
}

// Coordinator returns the shared bulk import coordinator
func (s *ImportService) Coordinator() *Coordinator {
	return s.coordinator
}

// StartSession loads the currency list and opens an empty session
func (s *ImportService) StartSession(ctx context.Context) (*Session, error) {
	catalog, err := fiat.LoadCatalog(ctx, s.currencies)
	if err != nil {
		return nil, fmt.Errorf("failed to start import session: %w", err)
	}

	session := newSession(s.processor, catalog, s.keywords, s.logger)
	s.logger.Debug("import session started",
		slog.String("session_id", session.ID.String()),
		slog.Int("currencies", catalog.Len()),
	)
	return session, nil
}

// normalizeCSVBytes strips a UTF-8 BOM and decodes Latin-1 input
func normalizeCSVBytes(data []byte) []byte {
	data = stripUTF8BOM(data)
	if utf8.Valid(data) {
		return data
	}
	return decodeLatin1(data)
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
