package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
)

// ProgressChunk is how many ramps are stored between progress events
const ProgressChunk = 50

// Memory is an in-process Service that stores ramps in memory. It emits one
// progress event per stored chunk, as the real backend does.
type Memory struct {
	mu    sync.Mutex
	fiats []fiat.Fiat
	ramps []fiatramp.CreateFiatRamp
	subs  map[chan fiatramp.Progress]struct{}
	fail  error
	calls int
	chunk int
}

var _ Service = (*Memory)(nil)

// NewMemory creates a backend serving fiats
func NewMemory(fiats []fiat.Fiat) *Memory {
	return &Memory{
		fiats: append([]fiat.Fiat(nil), fiats...),
		subs:  make(map[chan fiatramp.Progress]struct{}),
		chunk: ProgressChunk,
	}
}

// FailWith makes every later bulk create return err. nil restores success.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Ramps returns every stored ramp
func (m *Memory) Ramps() []fiatramp.CreateFiatRamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fiatramp.CreateFiatRamp(nil), m.ramps...)
}

// BulkCalls returns how many bulk creates were received
func (m *Memory) BulkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Subscribers returns the number of open progress subscriptions
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// GetAllCurrencies implements Service
func (m *Memory) GetAllCurrencies(_ context.Context) ([]fiat.Fiat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fiat.Fiat(nil), m.fiats...), nil
}

// CreateFiatRampsBulk validates the whole batch, then stores it chunk by
// chunk. Nothing is stored when any ramp is invalid.
func (m *Memory) CreateFiatRampsBulk(ctx context.Context, ramps []fiatramp.CreateFiatRamp) (int, error) {
	m.mu.Lock()
	m.calls++
	fail := m.fail
	m.mu.Unlock()

	if fail != nil {
		return 0, fail
	}

	for i, r := range ramps {
		if err := m.validate(r); err != nil {
			return 0, fmt.Errorf("ramp %d: %w", i, err)
		}
	}

	total := len(ramps)
	for start := 0; start < total; start += m.chunk {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		end := min(start+m.chunk, total)

		m.mu.Lock()
		m.ramps = append(m.ramps, ramps[start:end]...)
		m.mu.Unlock()

		m.publish(fiatramp.Progress{Processed: end, Total: total})
	}
	return total, nil
}

func (m *Memory) validate(r fiatramp.CreateFiatRamp) error {
	m.mu.Lock()
	known := false
	for _, f := range m.fiats {
		if f.ID == r.FiatID {
			known = true
			break
		}
	}
	m.mu.Unlock()

	switch {
	case !known:
		return fmt.Errorf("%w: unknown fiat %d", ErrInvalidRamp, r.FiatID)
	case r.Kind != fiatramp.KindDeposit && r.Kind != fiatramp.KindWithdraw:
		return fmt.Errorf("%w: kind %q", ErrInvalidRamp, r.Kind)
	case r.FiatAmount.IsNegative():
		return fmt.Errorf("%w: negative amount", ErrInvalidRamp)
	}
	if _, err := time.Parse("2006-01-02", r.RampDate); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidRamp, r.RampDate)
	}
	return nil
}

// SubscribeProgress implements Service
func (m *Memory) SubscribeProgress(ctx context.Context, event string, fn func(fiatramp.Progress) error) error {
	if event != fiatramp.BulkProgressEvent {
		return fmt.Errorf("unknown event %q", event)
	}

	ch := make(chan fiatramp.Progress, 64)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-ch:
			if err := fn(p); err != nil {
				return err
			}
		}
	}
}

func (m *Memory) publish(p fiatramp.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
