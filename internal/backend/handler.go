package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
)

// Service is the backend side of the command contract
type Service interface {
	GetAllCurrencies(ctx context.Context) ([]fiat.Fiat, error)
	CreateFiatRampsBulk(ctx context.Context, ramps []fiatramp.CreateFiatRamp) (int, error)
	SubscribeProgress(ctx context.Context, event string, fn func(fiatramp.Progress) error) error
}

var _ Service = (*Client)(nil)

// ErrInvalidRamp marks a ramp the backend refuses to store
var ErrInvalidRamp = errors.New("invalid ramp")

// Handler serves the command contract over Connect
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler creates a handler backed by svc
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Routes returns the path prefix and handler to mount on a mux
func (h *Handler) Routes() (string, http.Handler) {
	codec := connect.WithCodec(jsonCodec{})

	mux := http.NewServeMux()
	mux.Handle(GetAllCurrenciesProcedure, connect.NewUnaryHandler(
		GetAllCurrenciesProcedure, h.GetAllCurrencies, codec,
	))
	mux.Handle(CreateFiatRampsBulkProcedure, connect.NewUnaryHandler(
		CreateFiatRampsBulkProcedure, h.CreateFiatRampsBulk, codec,
	))
	mux.Handle(SubscribeBulkProgressProcedure, connect.NewServerStreamHandler(
		SubscribeBulkProgressProcedure, h.SubscribeBulkProgress, codec,
	))
	return "/" + ServiceName + "/", mux
}

// GetAllCurrencies returns the currency list
func (h *Handler) GetAllCurrencies(ctx context.Context, _ *connect.Request[GetAllCurrenciesRequest]) (*connect.Response[GetAllCurrenciesResponse], error) {
	fiats, err := h.svc.GetAllCurrencies(ctx)
	if err != nil {
		h.logger.Error("failed to list currencies", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&GetAllCurrenciesResponse{Currencies: fiats}), nil
}

// CreateFiatRampsBulk stores a batch of ramps
func (h *Handler) CreateFiatRampsBulk(ctx context.Context, req *connect.Request[CreateFiatRampsBulkRequest]) (*connect.Response[CreateFiatRampsBulkResponse], error) {
	if len(req.Msg.Ramps) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: empty batch", ErrInvalidRamp))
	}

	count, err := h.svc.CreateFiatRampsBulk(ctx, req.Msg.Ramps)
	if err != nil {
		if errors.Is(err, ErrInvalidRamp) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		h.logger.Error("failed to create ramps", slog.Int("ramps", len(req.Msg.Ramps)), slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&CreateFiatRampsBulkResponse{Count: count}), nil
}

// SubscribeBulkProgress streams progress until the client goes away
func (h *Handler) SubscribeBulkProgress(ctx context.Context, req *connect.Request[SubscribeBulkProgressRequest], stream *connect.ServerStream[fiatramp.Progress]) error {
	event := req.Msg.Event
	if event == "" {
		event = fiatramp.BulkProgressEvent
	}

	err := h.svc.SubscribeProgress(ctx, event, func(p fiatramp.Progress) error {
		return stream.Send(&p)
	})
	if err != nil && ctx.Err() == nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	return nil
}
