package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/backend"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/config"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/metrics"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/notify"
	"github.com/FACorreiaa/fiat-funding-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.ImportMetrics

	// Backend
	Backend *backend.Client

	// Services
	Notifications *notify.Service
	Dates         *parser.DateInterpreter
	Keywords      *mapping.KeywordEngine
	Processor     *importservice.Processor
	Coordinator   *importservice.Coordinator
	ImportService *importservice.ImportService

	// Preferences
	Prefs       storage.Store
	DateFilters *fiatramp.DateFilterStore

	httpClient connect.HTTPClient
}

// Option overrides a dependency, mostly for tests
type Option func(*Dependencies)

// WithHTTPClient sets the HTTP client used to reach the backend
func WithHTTPClient(c connect.HTTPClient) Option {
	return func(d *Dependencies) {
		d.httpClient = c
	}
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	for _, opt := range opts {
		opt(deps)
	}

	deps.initMetrics()

	if err := deps.initBackend(); err != nil {
		return nil, fmt.Errorf("failed to init backend: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initPreferences(); err != nil {
		return nil, fmt.Errorf("failed to init preferences: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initMetrics creates the registry; disabled metrics stay unregistered
func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.NewImportMetrics(d.Registry)
	} else {
		d.Metrics = metrics.NewImportMetrics(nil)
	}
}

// initBackend creates the command client
func (d *Dependencies) initBackend() error {
	if d.Config.Backend.URL == "" {
		return fmt.Errorf("backend url is required")
	}

	var httpClient connect.HTTPClient = &http.Client{}
	if d.httpClient != nil {
		httpClient = d.httpClient
	}

	d.Backend = backend.NewClient(httpClient, d.Config.Backend.URL, d.Logger,
		backend.WithTimeout(d.Config.Backend.Timeout),
	)

	d.Logger.Info("backend client initialized", slog.String("url", d.Config.Backend.URL))
	return nil
}

// initServices initializes the import flow
func (d *Dependencies) initServices() error {
	dates, err := parser.NewDateInterpreter(d.Config.Import.DateFormats, d.Config.Import.Location())
	if err != nil {
		return fmt.Errorf("invalid date formats: %w", err)
	}
	d.Dates = dates

	d.Notifications = notify.NewService(d.Logger)
	d.Keywords = mapping.NewKeywordEngine(mapping.DefaultKeywords)
	d.Processor = importservice.NewProcessor(d.Dates, d.Metrics, d.Logger)
	d.Coordinator = importservice.NewCoordinator(d.Backend, d.Notifications, d.Logger,
		importservice.WithDefaultExchange(d.Config.Import.DefaultExchange),
		importservice.WithMetrics(d.Metrics),
	)
	d.ImportService = importservice.NewImportService(d.Processor, d.Coordinator, d.Backend, d.Logger).
		WithKeywordEngine(d.Keywords)

	d.Logger.Info("services initialized",
		slog.Int("date_formats", len(d.Dates.Formats())),
		slog.String("timezone", d.Dates.Location().String()),
	)
	return nil
}

// initPreferences opens the local key/value store for the date filter
func (d *Dependencies) initPreferences() error {
	store, err := storage.New(&storage.Config{
		Type:      storage.StoreTypeLocal,
		LocalPath: d.Config.Storage.PrefsPath,
	})
	if err != nil {
		return fmt.Errorf("failed to init preferences store: %w", err)
	}
	d.Prefs = store
	d.DateFilters = fiatramp.NewDateFilterStore(store, d.Config.Import.Location(), d.Logger)

	d.Logger.Info("preferences initialized", slog.String("path", d.Config.Storage.PrefsPath))
	return nil
}

// Start opens the progress subscription for the lifetime of ctx
func (d *Dependencies) Start(ctx context.Context) {
	d.Coordinator.Attach(ctx)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Coordinator != nil {
		d.Coordinator.Detach()
	}
	d.Logger.Info("cleanup completed")
}
