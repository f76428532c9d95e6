package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turnstilecli/internal/config"
	apperrors "turnstilecli/internal/errors"
	"turnstilecli/internal/infrastructure"
	customMiddleware "turnstilecli/internal/middleware"
	"turnstilecli/internal/services"
	handlers "turnstilecli/internal/transport/http"
	"turnstilecli/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	SystemMetrics *infrastructure.SystemMetrics
	ErrorHandler  *apperrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Turnstile *services.TurnstileService
	Health    *services.HealthService
}

// NewApplication loads the configuration at configPath (empty for the
// default lookup) and wires every component
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, "", logger)
}

// New wires an application from an already loaded configuration. Relative
// paths resolve against baseDir.
func New(cfg *config.Config, baseDir string, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := config.NewPaths(cfg.Paths, baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("OpenTelemetry disabled", slog.String("error", err.Error()))
		providers = infrastructure.NoopProviders(logger)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices creates the pipeline and health services
func (a *Application) initializeServices() error {
	turnstile, err := services.NewTurnstileService(services.ServiceOptions{
		Ceiling:   a.Config.Pipeline.Ceiling,
		Workers:   a.Config.Pipeline.Workers,
		DataDir:   a.Paths.DataDir,
		Logger:    a.Logger,
		Providers: a.OTelProviders,
	})
	if err != nil {
		return err
	}

	health := services.NewHealthService(config.PathsConfig{DataDir: a.Paths.DataDir, ReportsDir: a.Paths.ReportsDir, LogsDir: a.Paths.LogsDir}, turnstile, a.Logger)

	sm, err := infrastructure.NewSystemMetrics(a.OTelProviders.Meter, time.Now())
	if err != nil {
		a.Logger.Warn("Runtime metrics disabled", slog.String("error", err.Error()))
	} else {
		a.SystemMetrics = sm
		health.SetSystemMetrics(sm)
	}

	a.Services = &ServiceContainer{
		Turnstile: turnstile,
		Health:    health,
	}
	return nil
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Warn("HTTP metrics disabled", slog.String("error", err.Error()))
		} else {
			r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, metrics).Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(middleware.Compress(5))

		if a.Config.Server.RateLimit.Enabled {
			limiter := customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			)
			r.Use(limiter.Handler)
		}

		a.setupAPIRoutes(r)

		if a.OTelProviders.PrometheusHTTP != nil {
			r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
		}
	})

	a.Router = r
}

// setupAPIRoutes mounts the JSON API under /api
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	turnstileHandler := handlers.NewTurnstileHandler(
		a.Services.Turnstile,
		handlers.Settings{
			DataDir: a.Paths.DataDir,
			FileExt: a.Config.Pipeline.FileExt,
			Defaults: handlers.QueryDefaults{
				TopN:      a.Config.Pipeline.TopN,
				StartHour: a.Config.Pipeline.StartHour,
				EndHour:   a.Config.Pipeline.EndHour,
				Days:      a.Config.Pipeline.Days,
				GroupBy:   a.Config.Pipeline.GroupBy,
			},
		},
		a.Logger,
		a.ErrorHandler,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))
			r.Mount("/", turnstileHandler.Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// LoadInitialDataset loads the configured data directory. Failure leaves
// the service unloaded; the API then answers 503 until POST /api/load
// succeeds.
func (a *Application) LoadInitialDataset(ctx context.Context) {
	start, _ := a.Config.Pipeline.StartTime()
	end, _ := a.Config.Pipeline.EndTime()

	report, err := a.Services.Turnstile.LoadDirectory(ctx, a.Paths.DataDir, start, end, a.Config.Pipeline.FileExt)
	if err != nil {
		a.Logger.WarnContext(ctx, "Initial load failed",
			slog.String("data_dir", a.Paths.DataDir),
			slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Initial load complete",
		slog.String("load_id", report.ID),
		slog.Int("files_loaded", report.FilesLoaded),
		slog.Int("files_failed", report.FilesFailed),
		slog.Int("records", report.Clean.Kept))
}

// Start loads the initial dataset and starts the server
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.LoadInitialDataset(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.SystemMetrics != nil {
		if err := a.SystemMetrics.Unregister(); err != nil {
			a.Logger.WarnContext(ctx, "Error removing runtime metrics", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
