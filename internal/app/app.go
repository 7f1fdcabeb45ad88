package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"hilirisasi/internal/config"
	"hilirisasi/internal/dataprocessing"
	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/exporter"
	"hilirisasi/internal/files"
	"hilirisasi/internal/infrastructure"
	"hilirisasi/internal/middleware"
	"hilirisasi/internal/services"
	handlers "hilirisasi/internal/transport/http"
	ws "hilirisasi/internal/websocket"
	"hilirisasi/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DatasetMetrics

	Datasets     *services.DatasetService
	Health       *services.HealthService
	WebSocketHub *ws.Hub
	Watcher      *dataprocessing.Watcher

	Router http.Handler
	Server *http.Server
}

// NewApplication loads the configuration at configPath (searched for when
// empty), initializes logging and wires the application.
func NewApplication(configPath string) (*Application, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.GetPaths().EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("config_file", cfg.File()))
	cfg.GetPaths().LogPathResolution(logger)

	if err := files.ValidateOutputDirectory(cfg.Paths.ExportDir, logger); err != nil {
		return nil, err
	}

	return New(cfg, logger)
}

// New wires every component from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.ServiceVersion = contracts.Version
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDatasetMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices() error {
	loader := dataprocessing.NewLoader(
		dataprocessing.WithLogger(a.Logger),
		dataprocessing.WithTracer(a.OTelProviders.Tracer),
		dataprocessing.WithMetrics(a.Metrics),
	)

	hubMetrics, err := ws.NewHubMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}

	// The hub asks the dataset service for names lazily, so the two can be
	// built in either order.
	var datasets *services.DatasetService
	hub := ws.NewHub(a.Logger,
		ws.WithMetrics(hubMetrics),
		ws.WithDatasetNames(func() []string { return datasets.Names() }),
	)

	datasets = services.NewDatasetService(a.Config, loader, a.Logger,
		services.WithPublisher(hub),
		services.WithDatasetMetrics(a.Metrics),
		services.WithExporter(exporter.NewExporter(a.Config.GetPaths(), a.Logger)),
		services.WithSummarizer(dataprocessing.NewSummarizer(a.Logger, dataprocessing.SummarizerConfig{})),
	)

	a.WebSocketHub = hub
	a.Datasets = datasets
	a.Health = services.NewHealthService(datasets, hub, a.Logger)

	if a.Config.Watcher.Enabled {
		w := dataprocessing.NewWatcher(a.Config.Watcher.Debounce, datasets.SourceChanged, a.Logger)
		for _, ds := range a.Config.Datasets {
			if err := w.Add(ds.Path); err != nil {
				return fmt.Errorf("failed to watch dataset %s: %w", ds.Name, err)
			}
		}
		a.Logger.Info("Watching dataset sources",
			slog.Int("files", len(w.Files())),
			slog.Duration("debounce", a.Config.Watcher.Debounce))
		a.Watcher = w
	}
	return nil
}

func (a *Application) setupRouter() {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	var limiter *middleware.RateLimiter
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		limiter = middleware.NewRateLimiter(rl.RPS, rl.Burst, errorHandler, a.Logger)
	}

	a.Router = handlers.NewRouter(handlers.RouterConfig{
		Datasets:       handlers.NewDatasetHandler(a.Datasets, a.Logger, errorHandler),
		Health:         handlers.NewHealthHandler(a.Health, a.Logger),
		ErrorHandler:   errorHandler,
		Logger:         a.Logger,
		WebSocket:      ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins),
		Metrics:        a.OTelProviders.PrometheusHTTP,
		OTel:           middleware.NewOTelMiddleware(a.OTelProviders, a.Metrics),
		RateLimiter:    limiter,
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		RequestTimeout: a.Config.Server.RequestTimeout,
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run listens on the configured port and serves until SIGINT, SIGTERM or
// ctx cancellation, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts the background services and serves HTTP on ln until ctx is
// done. A dataset that fails to warm up is logged; it is retried on the
// first request for it.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.WebSocketHub.Start()

	if err := a.Datasets.Warm(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup warm-up incomplete", slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Watcher != nil {
		g.Go(func() error {
			if err := a.Watcher.Run(gctx); err != nil {
				// Datasets are still served; they just won't reload on save.
				a.Logger.ErrorContext(gctx, "Source watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", ln.Addr().String()),
			slog.Int("datasets", len(a.Config.Datasets)))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
