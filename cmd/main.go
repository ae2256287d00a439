package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/eatery/internal/adapters/http/api"
	"github.com/okian/eatery/internal/adapters/http/swagger"
	"github.com/okian/eatery/internal/adapters/repository"
	app "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/config"
	"github.com/okian/eatery/pkg/logger"
	"github.com/okian/eatery/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		// Logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close(context.Background())
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop(context.Background())

	docs, err := docsOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to load docs bundle: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, log, docs...),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// openStore builds the store selected by store_driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverMongo:
		client, err := repository.Connect(ctx, cfg.MongoURI, cfg.ConnectTimeout())
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(client, cfg.MongoDatabase,
			repository.WithRestaurantsCollection(cfg.RestaurantsCollection),
			repository.WithUsersCollection(cfg.UsersCollection),
			repository.WithQueryTimeout(cfg.QueryTimeout()),
		), nil
	default:
		return nil, fmt.Errorf("%w: %w: store_driver %q", config.ErrInvalidConfig, config.ErrUnknownOption, cfg.StoreDriver)
	}
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithStore(store, cfg.StoreDriver),
		app.WithNearbyRadius(cfg.NearbyRadiusMeters),
		app.WithReferencePolicy(app.ReferencePolicy(cfg.ReferencePolicy)),
	)
}

// docsOptions reads the configured ReDoc source. A local bundle keeps
// /api-docs working without outbound network access.
func docsOptions(cfg *config.Config) ([]swagger.Option, error) {
	opts := []swagger.Option{swagger.WithScriptURL(cfg.DocsScriptURL)}
	if cfg.DocsScriptFile == "" {
		return opts, nil
	}
	bundle, err := os.ReadFile(cfg.DocsScriptFile)
	if err != nil {
		return nil, err
	}
	return append(opts, swagger.WithBundle(bundle)), nil
}

// newHandler registers every route and wraps the mux in the CORS and
// request logging middleware.
func newHandler(ctx context.Context, svc *app.Service, log logger.Logger, docs ...swagger.Option) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux, docs...)
	api.NewServer(svc, svc).Register(ctx, mux)
	return api.CORS(api.RequestLogger(log.Named("http"), mux))
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the catalogue size gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			if _, err := svc.GetStats(ctx); err != nil && ctx.Err() == nil {
				logger.Get().Warn(ctx, "refreshing catalogue metrics", logger.Error(err))
			}
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
