package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/metrics"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/notify"
)

// Backend is the part of the command contract the coordinator needs
type Backend interface {
	CreateFiatRampsBulk(ctx context.Context, ramps []fiatramp.CreateFiatRamp) (int, error)
	SubscribeProgress(ctx context.Context, event string, fn func(fiatramp.Progress) error) error
}

// Phase is the state of the import progress display
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseImporting Phase = "importing"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Status is a snapshot of the coordinator
type Status struct {
	Phase    Phase             `json:"phase"`
	ImportID uuid.UUID         `json:"import_id"`
	Progress fiatramp.Progress `json:"progress"`
	Imported int               `json:"imported"`
	Message  string            `json:"message,omitempty"`
}

// Coordinator submits a validated preview to the backend in one call and
// tracks the progress events the backend emits meanwhile. It does not chunk,
// retry or cancel the batch.
type Coordinator struct {
	backend         Backend
	notifier        notify.Notifier
	metrics         *metrics.ImportMetrics
	tracer          trace.Tracer
	logger          *slog.Logger
	defaultExchange string

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithDefaultExchange sets the exchange recorded for rows without one
func WithDefaultExchange(name string) CoordinatorOption {
	return func(c *Coordinator) {
		if name != "" {
			c.defaultExchange = name
		}
	}
}

// WithMetrics records import counters on m
func WithMetrics(m *metrics.ImportMetrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a coordinator
func NewCoordinator(backend Backend, notifier notify.Notifier, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		backend:         backend,
		notifier:        notifier,
		metrics:         metrics.NewImportMetrics(nil),
		tracer:          otel.Tracer(tracerName),
		logger:          logger,
		defaultExchange: fiatramp.DefaultExchange,
		status:          Status{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach opens the progress subscription. It lives until Detach, across any
// number of imports. Attaching twice is a no-op.
func (c *Coordinator) Attach(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		err := c.backend.SubscribeProgress(subCtx, fiatramp.BulkProgressEvent, func(p fiatramp.Progress) error {
			c.onProgress(p)
			return nil
		})
		if err != nil {
			c.logger.Warn("progress subscription ended", slog.Any("error", err))
		}
	}()
}

// Detach closes the progress subscription and waits for it to stop
func (c *Coordinator) Detach() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status returns the current state
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Reset returns a finished coordinator to idle
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Phase != PhaseImporting {
		c.status = Status{Phase: PhaseIdle}
	}
}

func (c *Coordinator) onProgress(p fiatramp.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Phase != PhaseImporting {
		return
	}
	c.status.Progress = p
}

// Validate returns a *RowError for the first row that cannot be imported. The
// error points at the row's position in the source file.
func Validate(rows []ProcessedRow) error {
	for _, r := range rows {
		if problem, bad := r.Problem(); bad {
			return &RowError{Index: r.OriginalIndex, Problem: problem}
		}
	}
	return nil
}

// Import validates every row, then submits them all in a single backend call
// and returns how many records the backend stored. A failed call leaves the
// coordinator in PhaseFailed with the error message; nothing is assumed to be
// committed.
func (c *Coordinator) Import(ctx context.Context, rows []ProcessedRow) (int, error) {
	if len(rows) == 0 {
		return 0, ErrNoRecords
	}
	if err := Validate(rows); err != nil {
		c.metrics.Imports.WithLabelValues("rejected").Inc()
		c.notifier.Notify(ctx, notify.LevelError, err.Error())
		return 0, err
	}

	payload := c.Payload(rows)
	importID := uuid.New()
	logger := c.logger.With(slog.String("import_id", importID.String()))

	ctx, span := c.tracer.Start(ctx, "import.CreateFiatRampsBulk", trace.WithAttributes(
		attribute.String("import.id", importID.String()),
		attribute.Int("ramps", len(payload)),
	))
	defer span.End()

	c.mu.Lock()
	c.status = Status{
		Phase:    PhaseImporting,
		ImportID: importID,
		Progress: fiatramp.Progress{Processed: 0, Total: len(payload)},
	}
	c.mu.Unlock()

	logger.Info("submitting bulk import", slog.Int("ramps", len(payload)))
	start := time.Now()
	count, err := c.backend.CreateFiatRampsBulk(ctx, payload)
	c.metrics.ImportDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		msg := fmt.Sprintf("Import failed: %v", err)

		c.mu.Lock()
		c.status.Phase = PhaseFailed
		c.status.Message = msg
		c.mu.Unlock()

		c.metrics.Imports.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("bulk import failed", slog.Any("error", err))
		c.notifier.Notify(ctx, notify.LevelError, msg)
		return 0, fmt.Errorf("failed to import ramps: %w", err)
	}

	msg := fmt.Sprintf("Successfully imported %d records", count)

	c.mu.Lock()
	c.status.Phase = PhaseDone
	c.status.Imported = count
	c.status.Progress = fiatramp.Progress{Processed: len(payload), Total: len(payload)}
	c.status.Message = msg
	c.mu.Unlock()

	c.metrics.Imports.WithLabelValues("succeeded").Inc()
	c.metrics.ImportedRows.Add(float64(count))
	span.SetAttributes(attribute.Int("ramps.imported", count))
	logger.Info("bulk import finished", slog.Int("imported", count), slog.Duration("took", time.Since(start)))
	c.notifier.Notify(ctx, notify.LevelSuccess, msg)
	return count, nil
}

// Payload shapes preview rows into backend records. Rows must be valid.
func (c *Coordinator) Payload(rows []ProcessedRow) []fiatramp.CreateFiatRamp {
	out := make([]fiatramp.CreateFiatRamp, len(rows))
	for i, r := range rows {
		exchange := strings.TrimSpace(r.Exchange)
		if exchange == "" {
			exchange = c.defaultExchange
		}
		out[i] = fiatramp.CreateFiatRamp{
			FiatID:      r.FiatID,
			FiatAmount:  r.Amount,
			RampDate:    r.Date,
			ViaExchange: exchange,
			Kind:        r.Kind,
		}
	}
	return out
}
