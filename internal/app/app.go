package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"svg-converter/internal/auth"
	"svg-converter/internal/config"
	"svg-converter/internal/converter"
	"svg-converter/internal/fetcher"
	"svg-converter/internal/handler"
	"svg-converter/internal/intake"
	"svg-converter/internal/metrics"
	"svg-converter/internal/middleware"
	"svg-converter/internal/model"
	"svg-converter/internal/router"
	"svg-converter/internal/service"
	"svg-converter/internal/storage"
	"svg-converter/internal/sweeper"
)

type App struct {
	cfg             *config.Config
	server          *http.Server
	sweeper         *sweeper.Sweeper
	converter       *converter.Inkscape
	shutdownTimeout time.Duration
}

func New(cfg *config.Config) (*App, error) {
	store, err := storage.New(cfg.UploadDir, cfg.ConvertedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize api key verifier: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier, cfg.AuthHeader)

	validator := intake.NewValidator(cfg.AllowedMIMETypes)
	slog.Info("intake allow-list", "mime_types", validator.Allowed())

	inkscape := converter.NewInkscape(cfg.ConverterBin, cfg.ConvertTimeout)
	conversionService := service.NewConversionService(
		store,
		validator,
		inkscape,
		fetcher.New(cfg.FetchTimeout, cfg.FetchMaxBytes),
		appMetrics,
	)

	fileSweeper, err := sweeper.New(store,
		model.RetentionPolicy{Interval: cfg.CleanupInterval, TTL: cfg.FileTTL},
		sweeper.WithMetrics(appMetrics),
		sweeper.WithOrphanSweep(cfg.SweepOrphans),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file cleanup: %w", err)
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Convert: handler.NewConvertHandler(conversionService, cfg.BaseURL, cfg.MaxUploadSize),
		Files:   handler.NewFileHandler(store),
		Storage: handler.NewStorageHandler(service.NewStatsService(store)),
		Docs:    handler.NewDocsHandler(cfg.OpenAPISpecPath),
	}, appMetrics, registry)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		cfg:             cfg,
		server:          server,
		sweeper:         fileSweeper,
		converter:       inkscape,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Run serves until SIGINT/SIGTERM, then stops the sweeper and drains
// in-flight requests.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.checkConverter(ctx)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.sweeper.Start(sweepCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", a.server.Addr,
			"base_url", a.cfg.BaseURL,
			"upload_dir", a.cfg.UploadDir,
			"converted_dir", a.cfg.ConvertedDir,
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	cancelSweep()
	<-sweepDone

	timeout := a.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("graceful shutdown failed: %w", err))
	}

	slog.Info("server stopped")
	return runErr
}

// checkConverter only warns: the binary may be installed after startup, and
// each request reports its own conversion failure.
func (a *App) checkConverter(ctx context.Context) {
	version, err := a.converter.CheckInstallation(ctx)
	if err != nil {
		slog.Warn("converter not available; conversions will fail until it is installed", "binary", a.cfg.ConverterBin, "error", err)
		return
	}
	slog.Info("converter found", "binary", a.cfg.ConverterBin, "version", version)
}
