package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/backend"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/metrics"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/notify"
)

func validRow(i int, kind fiatramp.Kind) ProcessedRow {
	return ProcessedRow{
		OriginalIndex:   i,
		Date:            "2024-01-05",
		OriginalDateRaw: "2024-01-05",
		Amount:          decimal.NewFromInt(int64(100 + i)),
		AmountRaw:       "100",
		Currency:        "USD",
		Kind:            kind,
		IsDateValid:     true,
		IsAmountValid:   true,
		IsCurrencyValid: true,
		FiatID:          1,
	}
}

func validRows(n int) []ProcessedRow {
	rows := make([]ProcessedRow, n)
	for i := range rows {
		kind := fiatramp.KindDeposit
		if i%2 == 1 {
			kind = fiatramp.KindWithdraw
		}
		rows[i] = validRow(i, kind)
	}
	return rows
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProcessedRow)
		wantMsg string
	}{
		{"invalid date", func(r *ProcessedRow) { r.IsDateValid = false }, "Row 6 has an invalid date."},
		{"invalid amount", func(r *ProcessedRow) { r.IsAmountValid = false }, "Row 6 has an invalid amount."},
		{"invalid currency", func(r *ProcessedRow) { r.IsCurrencyValid = false }, "Row 6 has an invalid or missing currency."},
		{"date reported first", func(r *ProcessedRow) {
			r.IsCurrencyValid = false
			r.IsDateValid = false
		}, "Row 6 has an invalid date."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Four source rows above were filtered out of the preview.
			rows := validRows(3)
			for i := range rows {
				rows[i].OriginalIndex = i + 4
			}
			tt.mutate(&rows[1])
			rows[2].IsDateValid = false

			err := Validate(rows)
			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 5, rowErr.Index)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	assert.NoError(t, Validate(validRows(3)))
}

func TestCoordinator_Payload(t *testing.T) {
	c := NewCoordinator(backend.NewMemory(nil), &notify.Recorder{}, testLogger())

	rows := validRows(2)
	rows[0].Exchange = "Kraken"
	rows[1].Exchange = "   "

	payload := c.Payload(rows)
	require.Len(t, payload, 2)
	assert.Equal(t, fiatramp.CreateFiatRamp{
		FiatID:      1,
		FiatAmount:  decimal.NewFromInt(100),
		RampDate:    "2024-01-05",
		ViaExchange: "Kraken",
		Kind:        fiatramp.KindDeposit,
	}, payload[0])
	assert.Equal(t, fiatramp.DefaultExchange, payload[1].ViaExchange)
	assert.Equal(t, fiatramp.KindWithdraw, payload[1].Kind)

	custom := NewCoordinator(backend.NewMemory(nil), &notify.Recorder{}, testLogger(), WithDefaultExchange("CSV"))
	assert.Equal(t, "CSV", custom.Payload(rows)[1].ViaExchange)
}

func TestCoordinator_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid rows without calling the backend", func(t *testing.T) {
		mem := backend.NewMemory(testFiats())
		rec := &notify.Recorder{}
		m := metrics.NewImportMetrics(prometheus.NewRegistry())
		c := NewCoordinator(mem, rec, testLogger(), WithMetrics(m))

		rows := validRows(2)
		rows[1].OriginalIndex = 7
		rows[1].IsCurrencyValid = false

		_, err := c.Import(ctx, rows)
		var rowErr *RowError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, 0, mem.BulkCalls())
		assert.Equal(t, PhaseIdle, c.Status().Phase)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Imports.WithLabelValues("rejected")))

		last, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, notify.LevelError, last.Level)
		assert.Equal(t, "Row 8 has an invalid or missing currency.", last.Message)
	})

	t.Run("empty preview", func(t *testing.T) {
		mem := backend.NewMemory(testFiats())
		c := NewCoordinator(mem, &notify.Recorder{}, testLogger())

		_, err := c.Import(ctx, nil)
		assert.ErrorIs(t, err, ErrNoRecords)
		assert.Equal(t, 0, mem.BulkCalls())
	})

	t.Run("success", func(t *testing.T) {
		mem := backend.NewMemory(testFiats())
		rec := &notify.Recorder{}
		m := metrics.NewImportMetrics(prometheus.NewRegistry())
		c := NewCoordinator(mem, rec, testLogger(), WithMetrics(m))

		count, err := c.Import(ctx, validRows(3))
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, 1, mem.BulkCalls())
		assert.Len(t, mem.Ramps(), 3)

		st := c.Status()
		assert.Equal(t, PhaseDone, st.Phase)
		assert.Equal(t, 3, st.Imported)
		assert.Equal(t, fiatramp.Progress{Processed: 3, Total: 3}, st.Progress)
		assert.Equal(t, "Successfully imported 3 records", st.Message)
		assert.NotZero(t, st.ImportID)

		last, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, notify.LevelSuccess, last.Level)
		assert.Equal(t, float64(3), testutil.ToFloat64(m.ImportedRows))

		c.Reset()
		assert.Equal(t, PhaseIdle, c.Status().Phase)
	})

	t.Run("backend failure", func(t *testing.T) {
		mem := backend.NewMemory(testFiats())
		mem.FailWith(errors.New("database is locked"))
		rec := &notify.Recorder{}
		c := NewCoordinator(mem, rec, testLogger())

		_, err := c.Import(ctx, validRows(2))
		require.Error(t, err)
		assert.ErrorContains(t, err, "database is locked")
		assert.Empty(t, mem.Ramps())

		st := c.Status()
		assert.Equal(t, PhaseFailed, st.Phase)
		assert.Equal(t, "Import failed: database is locked", st.Message)

		last, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, notify.LevelError, last.Level)
		assert.Equal(t, "Import failed: database is locked", last.Message)
	})

	t.Run("backend rejects the whole batch", func(t *testing.T) {
		mem := backend.NewMemory(testFiats())
		c := NewCoordinator(mem, &notify.Recorder{}, testLogger())

		rows := validRows(2)
		rows[1].FiatID = 99

		_, err := c.Import(ctx, rows)
		require.Error(t, err)
		assert.Empty(t, mem.Ramps())
		assert.Equal(t, PhaseFailed, c.Status().Phase)
	})
}

func TestCoordinator_AttachProgress(t *testing.T) {
	mem := backend.NewMemory(testFiats())
	c := NewCoordinator(mem, &notify.Recorder{}, testLogger())

	c.Attach(context.Background())
	c.Attach(context.Background())
	require.Eventually(t, func() bool { return mem.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	// Events outside an import are ignored.
	c.onProgress(fiatramp.Progress{Processed: 5, Total: 10})
	assert.Equal(t, fiatramp.Progress{}, c.Status().Progress)

	count, err := c.Import(context.Background(), validRows(2*backend.ProgressChunk+20))
	require.NoError(t, err)
	assert.Equal(t, 2*backend.ProgressChunk+20, count)

	st := c.Status()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.Equal(t, st.Progress.Total, st.Progress.Processed)

	c.Detach()
	assert.Equal(t, 0, mem.Subscribers())
	c.Detach()
}

// blockingBackend publishes one progress event, then holds the bulk call
// until release is closed.
type blockingBackend struct {
	progress chan fiatramp.Progress
	sent     chan struct{}
	release  chan struct{}
	step     fiatramp.Progress
}

func newBlockingBackend(step fiatramp.Progress) *blockingBackend {
	return &blockingBackend{
		progress: make(chan fiatramp.Progress, 1),
		sent:     make(chan struct{}),
		release:  make(chan struct{}),
		step:     step,
	}
}

func (b *blockingBackend) CreateFiatRampsBulk(ctx context.Context, ramps []fiatramp.CreateFiatRamp) (int, error) {
	b.progress <- b.step
	close(b.sent)
	select {
	case <-b.release:
		return len(ramps), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (b *blockingBackend) SubscribeProgress(ctx context.Context, _ string, fn func(fiatramp.Progress) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-b.progress:
			if err := fn(p); err != nil {
				return err
			}
		}
	}
}

func TestCoordinator_ProgressWhileImporting(t *testing.T) {
	step := fiatramp.Progress{Processed: 50, Total: 120}
	be := newBlockingBackend(step)
	c := NewCoordinator(be, &notify.Recorder{}, testLogger())

	c.Attach(context.Background())
	defer c.Detach()

	type result struct {
		count int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		n, err := c.Import(context.Background(), validRows(120))
		done <- result{n, err}
	}()

	<-be.sent
	require.Eventually(t, func() bool {
		return c.Status().Progress == step
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseImporting, c.Status().Phase)

	close(be.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 120, res.count)

	st := c.Status()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.Equal(t, fiatramp.Progress{Processed: 120, Total: 120}, st.Progress)
}
