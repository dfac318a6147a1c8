package fiatramp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/fiat-funding-tracker/pkg/storage"
)

// DateFilterKey is the preference key holding the funding table date range
const DateFilterKey = "funding_date_filter_range"

// DefaultFilterSpan is the length of the range used when none is stored
const DefaultFilterSpan = 14 * 24 * time.Hour

// DateRange bounds the funding table. Both ends are inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

type dateRangeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DefaultDateRange covers the two weeks ending today: from the start of the
// day two weeks before now to the end of today, in loc.
func DefaultDateRange(now time.Time, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	start := startOfDay(now.Add(-DefaultFilterSpan))
	end := startOfDay(now).AddDate(0, 0, 1).Add(-time.Millisecond)
	return DateRange{From: start, To: end}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateFilterStore persists the date range across restarts
type DateFilterStore struct {
	store  storage.Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewDateFilterStore creates a filter store backed by store
func NewDateFilterStore(store storage.Store, loc *time.Location, logger *slog.Logger) *DateFilterStore {
	if loc == nil {
		loc = time.UTC
	}
	return &DateFilterStore{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Load returns the stored range. A missing or unreadable value yields the
// default range.
func (s *DateFilterStore) Load(ctx context.Context) DateRange {
	data, err := s.store.Get(ctx, DateFilterKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read date filter", slog.Any("error", err))
		}
		return DefaultDateRange(s.now(), s.loc)
	}

	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("discarding corrupt date filter", slog.Any("error", err))
		return DefaultDateRange(s.now(), s.loc)
	}

	from, errFrom := time.Parse(time.RFC3339Nano, raw.From)
	to, errTo := time.Parse(time.RFC3339Nano, raw.To)
	if errFrom != nil || errTo != nil || to.Before(from) {
		s.logger.Warn("discarding invalid date filter", slog.String("from", raw.From), slog.String("to", raw.To))
		return DefaultDateRange(s.now(), s.loc)
	}

	return DateRange{From: from.In(s.loc), To: to.In(s.loc)}
}

// Save stores r
func (s *DateFilterStore) Save(ctx context.Context, r DateRange) error {
	if r.To.Before(r.From) {
		return fmt.Errorf("invalid date range: %s is after %s", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}

	data, err := json.Marshal(dateRangeJSON{
		From: r.From.UTC().Format(time.RFC3339Nano),
		To:   r.To.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode date filter: %w", err)
	}

	if err := s.store.Set(ctx, DateFilterKey, data); err != nil {
		return fmt.Errorf("failed to save date filter: %w", err)
	}
	return nil
}

// Clear removes the stored range so the default applies again
func (s *DateFilterStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, DateFilterKey); err != nil {
		return fmt.Errorf("failed to clear date filter: %w", err)
	}
	return nil
}
