package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/slumber/internal/client"
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/pkg/logger"
)

const (
	directoryPermission = 0750
	healthPath          = "/healthz"
	progressEvery       = 500
	percent             = 100
)

// ErrUnhealthy is returned when the service does not answer its health check.
var ErrUnhealthy = errors.New("service unhealthy")

// Run executes a complete load run: health check, generate, submit, report.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now(), ByQuality: map[quality.Quality]int{}}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c, err := client.New(client.WithBaseURL(cfg.BaseURL), client.WithTimeout(cfg.Timeout), client.WithLogger(log))
	if err != nil {
		return nil, err
	}

	if !cfg.SkipHealth {
		if err := checkHealth(ctx, cfg); err != nil {
			return nil, fmt.Errorf("service health check failed: %w", err)
		}
	}

	records := NewGenerator(cfg.Seed).Generate(cfg.Requests)
	stats.Generated = len(records)

	if cfg.OutputFile != "" {
		if err := saveRecords(cfg.OutputFile, records); err != nil {
			log.Warn(ctx, "failed to save records", logger.Error(err))
		}
	}

	if err := submit(ctx, c, cfg.Workers, records, stats, log); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report(ctx, log, stats)
	return stats, nil
}

// submit posts every record with at most workers in flight. Individual
// failures are tallied, never returned.
func submit(ctx context.Context, c *client.Client, workers int, records []habit.Record, stats *Stats, log logger.Logger) error {
	if workers < 1 {
		workers = 1
	}
	var mu sync.Mutex
	tally := func(res client.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Submitted++
		var (
			se *client.ServiceError
			me *client.MalformedResponseError
		)
		switch {
		case err == nil:
			stats.Succeeded++
			stats.ByQuality[res.Quality]++
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			stats.Cancelled++
		case errors.As(err, &se):
			stats.ServiceFailures++
		case errors.As(err, &me):
			stats.MalformedFailures++
		default:
			stats.TransportFailures++
		}
		if stats.Submitted%progressEvery == 0 {
			log.Info(ctx, "progress",
				logger.Int("submitted", stats.Submitted),
				logger.Int("total", len(records)),
				logger.Int("failed", stats.Failed()))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := c.Predict(gctx, rec)
			tally(res, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func checkHealth(ctx context.Context, cfg *Config) error {
	hc := &http.Client{Timeout: cfg.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// saveRecords writes records as a JSON array.
func saveRecords(filename string, records []habit.Record) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return f.Close()
}

func report(ctx context.Context, log logger.Logger, s *Stats) {
	var successRate float64
	if s.Submitted > 0 {
		successRate = float64(s.Succeeded) / float64(s.Submitted) * percent
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", s.Generated),
		logger.Int("submitted", s.Submitted),
		logger.Int("succeeded", s.Succeeded),
		logger.Int("good", s.ByQuality[quality.Good]),
		logger.Int("average", s.ByQuality[quality.Average]),
		logger.Int("poor", s.ByQuality[quality.Poor]),
		logger.Int("transportFailures", s.TransportFailures),
		logger.Int("serviceFailures", s.ServiceFailures),
		logger.Int("malformedFailures", s.MalformedFailures),
		logger.Int("cancelled", s.Cancelled),
		logger.Duration("duration", s.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", s.Throughput()))
}
