package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dealpulse/internal/auth"
	"dealpulse/internal/config"
	"dealpulse/internal/dealstore"
	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/infrastructure"
	"dealpulse/internal/jobs"
	customMiddleware "dealpulse/internal/middleware"
	"dealpulse/internal/rentroll"
	"dealpulse/internal/services"
	handlers "dealpulse/internal/transport/http"
	"dealpulse/internal/underwriting"
	"dealpulse/internal/validation"
	ws "dealpulse/internal/websocket"
	"dealpulse/pkg/contracts"
	"dealpulse/pkg/contracts/domain"
)

// systemMetricsInterval is how often process stats are sampled.
const systemMetricsInterval = 30 * time.Second

// Application is the composed server: every long-lived component hangs
// off this container.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Hub      *ws.Hub
	Queue    *jobs.Queue
	Store    *dealstore.Store
	Services *ServiceContainer

	businessMetrics *infrastructure.BusinessMetrics
	collector       *infrastructure.SystemMetricsCollector
}

// ServiceContainer holds the business services behind the handlers.
type ServiceContainer struct {
	Underwriting *services.UnderwritingService
	Deals        *services.DealService
	RentRoll     *services.RentRollService
	Health       *services.HealthService
}

// NewApplication builds a fully wired but not yet started application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("store_enabled", cfg.Database.Enabled()),
		slog.Bool("auth_enabled", cfg.Security.AuthEnabled()))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.createServer()
	return app, nil
}

// initializeServices builds the component graph bottom-up: store, hub,
// queue, engine, then the services that depend on them.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("create business metrics: %w", err)
	}
	a.businessMetrics = metrics

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval)
	if err != nil {
		return fmt.Errorf("create system metrics collector: %w", err)
	}
	a.collector = collector

	if a.Config.Database.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Database.ConnectTimeout)
		defer cancel()

		store, err := dealstore.New(ctx, dealstore.Config{
			DSN:             a.Config.Database.DSN,
			MaxConns:        int32(a.Config.Database.MaxConns),
			MinConns:        int32(a.Config.Database.MinConns),
			MaxConnLifetime: a.Config.Database.MaxConnLifetime,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("connect deal store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure deal store schema: %w", err)
		}
		a.Store = store
	} else {
		a.Logger.Info("deal store disabled, persistence endpoints will answer 503")
	}

	a.Hub = ws.NewHub(a.Logger)

	a.Queue = jobs.NewQueue(jobs.Config{
		Workers:   a.Config.Jobs.Workers,
		QueueSize: a.Config.Jobs.QueueSize,
		Timeout:   a.Config.Jobs.Timeout,
		Retention: a.Config.Jobs.Retention,
	}, nil, a.Hub, a.Logger)

	calculator := underwriting.NewCalculator(a.Logger)
	calculator.SetTimeout(a.Config.Engine.CalculationTimeout)

	underwritingSvc := services.NewUnderwritingService(calculator, metrics, a.Logger)
	a.Queue.Register(domain.JobTypeSensitivity, underwritingSvc.SensitivityRunner())

	a.Services = &ServiceContainer{
		Underwriting: underwritingSvc,
		Deals:        services.NewDealService(a.Store, a.Logger),
		RentRoll: services.NewRentRollService(
			rentroll.NewParser(a.Logger),
			validation.NewFileValidator(a.Logger),
			metrics,
			a.Logger,
		),
		Health: services.NewHealthService(a.Store, a.Queue, a.Hub, a.collector, a.Logger),
	}

	return nil
}

// setupRouter configures the chi router following the usual middleware
// order: RequestID, RealIP, then tracing/metrics/logging inside the API
// group. The websocket and metrics endpoints stay outside the group so
// the response writer is never wrapped.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	// Outermost recovery so panics on the websocket and metrics endpoints
	// still render a problem; API routes get their own recovery below.
	r.Use(apierrors.RecoveryMiddleware(errorHandler))

	wsHandler := ws.NewHandler(a.Hub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle(config.WebSocketEndpoint, wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("create otel middleware: %w", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.businessMetrics))
		// Request logging with sanitized bodies on failures, plus panic
		// recovery for the API group.
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
	return nil
}

// setupAPIRoutes registers the versioned API under /api/v1. The engine
// endpoints get the sweep timeout; everything else uses the server read
// timeout.
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	underwritingHandler := handlers.NewUnderwritingHandler(a.Services.Underwriting, a.Logger)
	jobsHandler := handlers.NewJobsHandler(a.Queue, a.Logger)
	dealsHandler := handlers.NewDealsHandler(a.Services.Deals, a.Services.Underwriting, a.Logger)
	rentRollHandler := handlers.NewRentRollHandler(a.Services.RentRoll, a.Logger)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Synchronous engine runs can sweep full grids; give them the
		// longer budget.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(config.SensitivitySweepTimeout, a.Logger))
			underwritingHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler.RegisterRoutes(r)
			jobsHandler.RegisterRoutes(r)
			rentRollHandler.RegisterRoutes(r)
			dealsHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				if a.Config.Security.AuthEnabled() {
					authService, err := auth.NewService(a.Config.Security.APITokenHash, a.Logger)
					if err != nil {
						a.Logger.Error("auth service unavailable, write routes stay guarded",
							slog.String("error", err.Error()))
						r.Use(rejectAll(a.Logger))
					} else {
						r.Use(customMiddleware.AuthMiddleware(a.Logger, authService))
					}
				}
				dealsHandler.RegisterWriteRoutes(r)
			})
		})
	})
}

// rejectAll answers 503 for every request. Used when the auth guard is
// configured but cannot be constructed; failing open is not an option.
func rejectAll(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.ErrorContext(r.Context(), "write route refused, auth guard misconfigured",
				slog.String("path", r.URL.Path))
			apierrors.WriteError(w, apierrors.ErrServiceUnavailable)
		})
	}
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the hub, queue, metrics collector, and HTTP listener.
// A listener failure cancels the provided context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Hub.Start()
	a.Queue.Start(ctx)
	a.collector.Start(ctx)

	go func() {
		a.Logger.InfoContext(ctx, "http server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop shuts everything down in reverse dependency order.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.Queue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "job queue stop error", slog.String("error", err.Error()))
	}

	a.Hub.Stop()
	a.collector.Stop()

	if a.Store != nil {
		a.Store.Close()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "otel shutdown error", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
