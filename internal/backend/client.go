package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
)

// Client calls the funding backend
type Client struct {
	currencies *connect.Client[GetAllCurrenciesRequest, GetAllCurrenciesResponse]
	bulk       *connect.Client[CreateFiatRampsBulkRequest, CreateFiatRampsBulkResponse]
	progress   *connect.Client[SubscribeBulkProgressRequest, fiatramp.Progress]
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout bounds each unary call. Progress subscriptions are not bounded.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a backend client for baseURL. httpClient must not set a
// global timeout because the progress stream is long-lived.
func NewClient(httpClient connect.HTTPClient, baseURL string, logger *slog.Logger, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(jsonCodec{})

	c := &Client{
		currencies: connect.NewClient[GetAllCurrenciesRequest, GetAllCurrenciesResponse](
			httpClient, baseURL+GetAllCurrenciesProcedure, codec,
		),
		bulk: connect.NewClient[CreateFiatRampsBulkRequest, CreateFiatRampsBulkResponse](
			httpClient, baseURL+CreateFiatRampsBulkProcedure, codec,
		),
		progress: connect.NewClient[SubscribeBulkProgressRequest, fiatramp.Progress](
			httpClient, baseURL+SubscribeBulkProgressProcedure, codec,
		),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAllCurrencies implements fiat.Source
func (c *Client) GetAllCurrencies(ctx context.Context) ([]fiat.Fiat, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.currencies.CallUnary(ctx, connect.NewRequest(&GetAllCurrenciesRequest{}))
	if err != nil {
		return nil, fmt.Errorf("get_all_currencies: %w", unwrap(err))
	}

	c.logger.Debug("currencies loaded", slog.Int("count", len(resp.Msg.Currencies)))
	return resp.Msg.Currencies, nil
}

// CreateFiatRampsBulk submits every ramp in one call and returns how many the
// backend stored
func (c *Client) CreateFiatRampsBulk(ctx context.Context, ramps []fiatramp.CreateFiatRamp) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.bulk.CallUnary(ctx, connect.NewRequest(&CreateFiatRampsBulkRequest{Ramps: ramps}))
	if err != nil {
		return 0, fmt.Errorf("create_fiat_ramps_bulk: %w", unwrap(err))
	}
	return resp.Msg.Count, nil
}

// SubscribeProgress follows the event channel and calls fn for each progress
// message until ctx is done or the backend closes the stream. A cancelled
// context is not an error.
func (c *Client) SubscribeProgress(ctx context.Context, event string, fn func(fiatramp.Progress) error) error {
	stream, err := c.progress.CallServerStream(ctx, connect.NewRequest(&SubscribeBulkProgressRequest{Event: event}))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", event, unwrap(err))
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(*stream.Msg()); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("subscribe %s: %w", event, unwrap(err))
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// unwrap reduces a connect error to its message so user-facing text does not
// carry the wire code prefix
func unwrap(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) && connectErr.Message() != "" {
		return &RemoteError{Code: connectErr.Code(), Message: connectErr.Message()}
	}
	return err
}

// RemoteError is an error reported by the backend
type RemoteError struct {
	Code    connect.Code
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
