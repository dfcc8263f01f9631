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

	"github.com/okian/slumber/internal/adapters/cache"
	"github.com/okian/slumber/internal/adapters/http/api"
	"github.com/okian/slumber/internal/adapters/http/swagger"
	"github.com/okian/slumber/internal/adapters/repository"
	app "github.com/okian/slumber/internal/app"
	"github.com/okian/slumber/internal/config"
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/scoring"
	"github.com/okian/slumber/pkg/logger"
	"github.com/okian/slumber/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	rateLimitWindow           = time.Minute
)

func main() {
	// Default Go collectors live on the global registry; ours is separate.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		loggerInstance.Error(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	loggerInstance := logger.Get()

	svc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	handler, limiter := buildHandler(ctx, cfg, svc)
	if limiter != nil {
		defer limiter.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		loggerInstance.Info(ctx, "shutting down server...")
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout; the service drains pending history writes.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return runErr
}

// buildService wires the cache, history store and classifier from cfg.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	loggerInstance := logger.Get()

	predictionCache, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store repository.Store
	if cfg.HistoryPath != "" {
		sqlite, err := repository.NewSQLiteStore(ctx, cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		loggerInstance.Info(ctx, "using sqlite history", logger.String("path", cfg.HistoryPath))
		store = sqlite
	} else {
		store = repository.NewRingStore(ctx, repository.WithCapacity(cfg.HistorySize))
	}

	scorer := scoring.NewRuleScorer(
		scoring.WithThresholds(cfg.GoodThreshold, cfg.AverageThreshold),
		scoring.WithLatencyRange(
			time.Duration(cfg.ScoringLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.ScoringLatencyMaxMS)*time.Millisecond,
		),
	)

	return app.New(
		app.WithLogger(loggerInstance.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		app.WithParser(habit.NewParser(habit.WithStressRange(cfg.StressMin, cfg.StressMax))),
		app.WithScorer(scorer),
		app.WithCache(predictionCache),
		app.WithStore(store),
	), nil
}

// buildCache returns a Redis cache when redis_addr is set, otherwise an
// in-memory one.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	opts := []cache.Option{
		cache.WithMaxSize(cfg.CacheSize),
		cache.WithTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		cache.WithLogger(logger.Get().Named("cache")),
	}
	if cfg.RedisAddr == "" {
		return cache.NewMemory(opts...), nil
	}
	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Get().Info(ctx, "using redis cache", logger.String("addr", cfg.RedisAddr))
	return cache.NewRedis(rdb, opts...), nil
}

// buildHandler registers the API and docs routes. The returned limiter, if
// any, must be stopped by the caller.
func buildHandler(ctx context.Context, cfg *config.Config, svc *app.Service) (http.Handler, *api.RateLimiter) {
	opts := []api.Option{api.WithLogger(logger.Get().Named("api"))}
	var limiter *api.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitPerMinute, rateLimitWindow)
		opts = append(opts, api.WithRateLimiter(limiter))
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, func(ctx context.Context) any { return svc.GetStats(ctx) }, opts...).Register(ctx, mux)
	return mux, limiter
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

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
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

// updateServiceMetrics refreshes gauges that only change through the service.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
	metrics.UpdateHistoryRecords(stats.HistoryRecords)
	metrics.UpdateCacheEntries(int(stats.CacheEntries))
}
