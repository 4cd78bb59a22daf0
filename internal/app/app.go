package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"trialmerge/internal/config"
	"trialmerge/internal/dataprocessing"
	apierrors "trialmerge/internal/errors"
	"trialmerge/internal/infrastructure"
	customMiddleware "trialmerge/internal/middleware"
	"trialmerge/internal/services"
	handlers "trialmerge/internal/transport/http"
	"trialmerge/pkg/contracts"
)

// Application wires the web service together
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Telemetry     *infrastructure.Telemetry
	MergeService  *services.MergeService
	HealthService *services.HealthService
	Logger        *slog.Logger

	errorHandler *apierrors.ErrorHandler
}

// NewApplication builds the services, router and server. A nil tel disables
// tracing and metrics.
func NewApplication(cfg *config.Config, logger *slog.Logger, tel *infrastructure.Telemetry) (*Application, error) {
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	a := &Application{
		Config:       cfg,
		Paths:        paths,
		Telemetry:    tel,
		Logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	assembler, err := dataprocessing.NewAssembler(a.Logger, a.Telemetry)
	if err != nil {
		return err
	}
	a.MergeService = services.NewMergeService(assembler, a.Paths.WorkingDir, a.Logger)
	a.HealthService = services.NewHealthService(a.Logger)
	return nil
}

// setupRouter orders middleware as RequestID, TraceID, RealIP, OTel, logger,
// recoverer, then the per-request guards.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(customMiddleware.TraceID)
	r.Use(middleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.Telemetry)
	if err != nil {
		return err
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(a.errorHandler.Recoverer)
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.errorHandler, a.Logger).Handler)
		}
		r.Use(middleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", healthHandler.Version)

		mergeHandler := handlers.NewMergeHandler(a.MergeService, a.Config.Server.MaxUploadBytes, a.Logger, a.errorHandler)
		r.Mount("/merge", mergeHandler.Routes())
	})

	if h := a.Telemetry.MetricsHandler(); h != nil {
		r.Handle("/metrics", h)
	}

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run listens on the configured port and serves until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.Logger.InfoContext(ctx, "starting web service",
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("working_dir", a.Paths.WorkingDir),
		slog.String("log_level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop drains in-flight requests and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down web service")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "error shutting down telemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "web service stopped")
	return errors.Join(errs...)
}
