package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, svc Service) *Client {
	t.Helper()

	path, handler := NewHandler(svc, testLogger()).Routes()
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(srv.Client(), srv.URL+"/", testLogger(), WithTimeout(5*time.Second))
}

func ramps(n int) []fiatramp.CreateFiatRamp {
	out := make([]fiatramp.CreateFiatRamp, n)
	for i := range out {
		out[i] = fiatramp.CreateFiatRamp{
			FiatID:      1,
			FiatAmount:  decimal.NewFromInt(int64(i + 1)),
			RampDate:    "2024-01-05",
			ViaExchange: fiatramp.DefaultExchange,
			Kind:        fiatramp.KindDeposit,
		}
	}
	return out
}

func TestClient_GetAllCurrencies(t *testing.T) {
	mem := NewMemory([]fiat.Fiat{{ID: 1, Symbol: "USD", Name: "US Dollar"}, {ID: 2, Symbol: "EUR", Name: "Euro"}})
	client := newTestServer(t, mem)

	got, err := client.GetAllCurrencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []fiat.Fiat{{ID: 1, Symbol: "USD", Name: "US Dollar"}, {ID: 2, Symbol: "EUR", Name: "Euro"}}, got)
}

func TestClient_CreateFiatRampsBulk(t *testing.T) {
	mem := NewMemory([]fiat.Fiat{{ID: 1, Symbol: "USD", Name: "US Dollar"}})
	client := newTestServer(t, mem)
	ctx := context.Background()

	t.Run("stores the batch", func(t *testing.T) {
		count, err := client.CreateFiatRampsBulk(ctx, ramps(3))
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		stored := mem.Ramps()
		require.Len(t, stored, 3)
		assert.True(t, stored[2].FiatAmount.Equal(decimal.NewFromInt(3)))
	})

	t.Run("invalid ramp rejects the whole batch", func(t *testing.T) {
		before := len(mem.Ramps())
		batch := ramps(2)
		batch[1].FiatID = 99

		_, err := client.CreateFiatRampsBulk(ctx, batch)
		require.Error(t, err)

		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, connect.CodeInvalidArgument, remote.Code)
		assert.Contains(t, err.Error(), "unknown fiat 99")
		assert.Len(t, mem.Ramps(), before)
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := client.CreateFiatRampsBulk(ctx, nil)
		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, connect.CodeInvalidArgument, remote.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		mem.FailWith(errors.New("database is locked"))
		defer mem.FailWith(nil)

		_, err := client.CreateFiatRampsBulk(ctx, ramps(1))
		require.Error(t, err)
		assert.Equal(t, "create_fiat_ramps_bulk: database is locked", err.Error())
	})
}

func TestClient_SubscribeProgress(t *testing.T) {
	mem := NewMemory([]fiat.Fiat{{ID: 1, Symbol: "USD", Name: "US Dollar"}})
	client := newTestServer(t, mem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []fiatramp.Progress
	)
	done := make(chan error, 1)
	go func() {
		done <- client.SubscribeProgress(ctx, fiatramp.BulkProgressEvent, func(p fiatramp.Progress) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, p)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return mem.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	count, err := client.CreateFiatRampsBulk(context.Background(), ramps(120))
	require.NoError(t, err)
	assert.Equal(t, 120, count)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []fiatramp.Progress{
		{Processed: 50, Total: 120},
		{Processed: 100, Total: 120},
		{Processed: 120, Total: 120},
	}, received)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation ends the subscription cleanly")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
	require.Eventually(t, func() bool { return mem.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SubscribeProgressCallbackError(t *testing.T) {
	mem := NewMemory([]fiat.Fiat{{ID: 1, Symbol: "USD", Name: "US Dollar"}})
	client := newTestServer(t, mem)

	stop := fmt.Errorf("stop")
	done := make(chan error, 1)
	go func() {
		done <- client.SubscribeProgress(context.Background(), fiatramp.BulkProgressEvent, func(fiatramp.Progress) error {
			return stop
		})
	}()

	require.Eventually(t, func() bool { return mem.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, err := client.CreateFiatRampsBulk(context.Background(), ramps(1))
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, stop)
	case <-time.After(2 * time.Second):
		t.Fatal("callback error did not end the subscription")
	}
}

func TestJSONCodec(t *testing.T) {
	var c jsonCodec
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&CreateFiatRampsBulkResponse{Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(data))

	var out CreateFiatRampsBulkResponse
	require.NoError(t, c.Unmarshal(nil, &out))
	assert.Error(t, c.Unmarshal([]byte("{"), &out))
}
