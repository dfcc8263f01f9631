// Package service orchestrates validation, classification, caching and
// history for sleep quality predictions.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/slumber/internal/adapters/cache"
	historyqueue "github.com/okian/slumber/internal/adapters/mq/queue"
	workerpool "github.com/okian/slumber/internal/adapters/mq/worker"
	"github.com/okian/slumber/internal/adapters/repository"
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/internal/domain/scoring"
	"github.com/okian/slumber/internal/domain/tips"
	"github.com/okian/slumber/pkg/logger"
	"github.com/okian/slumber/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize       = 1024
	defaultMaxHistoryLimit = 100
	defaultShutdownTimeout = 10 * time.Second
)

// Stats is a point-in-time view of the service.
type Stats struct {
	Started         bool             `json:"started"`
	Predictions     int64            `json:"predictions"`
	ByQuality       map[string]int64 `json:"by_quality"`
	CacheHits       int64            `json:"cache_hits"`
	CacheMisses     int64            `json:"cache_misses"`
	CacheEntries    int64            `json:"cache_entries"`
	HistoryRecords  int              `json:"history_records"`
	HistoryWritten  int64            `json:"history_written"`
	HistoryFailed   int64            `json:"history_failed"`
	HistoryDropped  int64            `json:"history_dropped"`
	QueueLength     int              `json:"queue_length"`
	QueueCapacity   int              `json:"queue_capacity"`
	WorkerCount     int              `json:"worker_count"`
	MaxHistoryLimit int              `json:"max_history_limit"`
}

// Service implements the API dependencies for the prediction system.
type Service struct {
	mu sync.RWMutex

	// Core components
	parser *habit.Parser
	scorer scoring.Scorer
	cache  cache.Cache
	store  repository.Store
	queue  historyqueue.Queue
	pool   *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	maxHistoryLimit int
	now             func() time.Time

	// Counters
	predictions atomic.Int64
	byQuality   map[quality.Quality]*atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	dropped     atomic.Int64

	// State
	started bool
	stopped bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Components not supplied through options fall
// back to in-memory defaults.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		maxHistoryLimit: defaultMaxHistoryLimit,
		now:             time.Now,
		byQuality:       make(map[quality.Quality]*atomic.Int64, len(quality.All())),
	}
	for _, q := range quality.All() {
		s.byQuality[q] = &atomic.Int64{}
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.parser == nil {
		s.parser = habit.NewParser()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewRuleScorer()
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.store == nil {
		s.store = repository.NewRingStore(context.Background())
	}
	return s
}

// Start creates the history queue and starts the writers. Workers outlive
// ctx cancellation so that Stop can drain them. A stopped service cannot
// be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting prediction service...")

	q := historyqueue.NewInMemoryQueue(historyqueue.WithCapacity(s.queueSize))
	pool := workerpool.NewPool(s.workerCount, q, s.store, workerpool.WithLogger(s.logger.Named("history")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pool.Start(runCtx)

	s.queue = q
	s.pool = pool
	s.cancel = cancel
	s.started = true

	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains pending history writes and closes the store. ctx bounds the
// drain; when it has no deadline a default timeout applies.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping prediction service...")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "prediction service stopped",
		logger.Int64("historyWritten", s.pool.Processed()),
		logger.Int64("historyDropped", s.dropped.Load()),
	)
	return errors.Join(errs...)
}

// Predict validates rec, classifies it and records the outcome. A returned
// *habit.FieldError describes invalid input; any other error is internal.
func (s *Service) Predict(ctx context.Context, rec habit.Record) (model.Prediction, error) {
	start := time.Now()

	h, err := s.parser.Parse(rec)
	if err != nil {
		metrics.RecordPredictionError("validation")
		return model.Prediction{}, err
	}

	key := h.Fingerprint()
	entry, hit := s.cache.Get(ctx, key)
	if hit {
		s.cacheHits.Add(1)
		metrics.RecordCacheHit()
	} else {
		s.cacheMisses.Add(1)
		metrics.RecordCacheMiss()

		res, err := s.scorer.Score(ctx, h)
		if err != nil {
			metrics.RecordPredictionError("scoring")
			return model.Prediction{}, fmt.Errorf("%w: %w", ErrScoringFailed, err)
		}
		entry = cache.Entry{
			Quality: res.Quality,
			Score:   res.Score,
			Factors: res.Factors,
			Tips:    tips.Generate(h, res.Quality),
		}
		s.cache.Set(ctx, key, entry)
	}
	metrics.RecordClassificationLatency(float64(time.Since(start).Microseconds()) / 1000)

	p := model.Prediction{
		ID:        uuid.NewString(),
		Record:    rec,
		Quality:   entry.Quality,
		Score:     entry.Score,
		Factors:   entry.Factors,
		Tips:      entry.Tips,
		CreatedAt: s.now().UTC(),
	}

	s.predictions.Add(1)
	if c, ok := s.byQuality[p.Quality]; ok {
		c.Add(1)
	}
	if err := metrics.RecordPrediction(p.Quality.String()); err != nil {
		s.logger.Warn(ctx, "prediction metric rejected", logger.Error(err))
	}

	s.recordHistory(ctx, p)

	s.logger.Debug(ctx, "prediction served",
		logger.String("id", p.ID),
		logger.String("quality", p.Quality.String()),
		logger.Int("score", p.Score),
		logger.Bool("cached", hit),
	)
	return p.Clone(), nil
}

// recordHistory hands p to the writers without blocking. A refused write
// is logged and dropped; the prediction itself still succeeds.
func (s *Service) recordHistory(ctx context.Context, p model.Prediction) {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		s.dropped.Add(1)
		s.logger.Debug(ctx, "history write skipped", logger.String("id", p.ID), logger.Error(ErrNotStarted))
		return
	}
	if err := q.Enqueue(ctx, p.Clone()); err != nil {
		s.dropped.Add(1)
		s.logger.Warn(ctx, "history write dropped",
			logger.String("id", p.ID),
			logger.Error(err),
		)
	}
}

// Get returns a stored prediction. Unknown ids match both ErrNotFound and
// repository.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (model.Prediction, error) {
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Prediction{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return model.Prediction{}, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

// Recent returns up to limit predictions, newest first. limit is capped at
// the configured maximum.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.Prediction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.maxHistoryLimit {
		limit = s.maxHistoryLimit
	}
	list, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return list, nil
}

// MaxHistoryLimit returns the cap applied by Recent.
func (s *Service) MaxHistoryLimit() int { return s.maxHistoryLimit }

// GetStats returns service statistics for monitoring. Backend counts
// (cache size, stored history) are taken after the state lock is released
// so a slow backend never stalls Start, Stop or history writes.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	stats := Stats{
		Started:         s.started,
		Predictions:     s.predictions.Load(),
		ByQuality:       make(map[string]int64, len(s.byQuality)),
		CacheHits:       s.cacheHits.Load(),
		CacheMisses:     s.cacheMisses.Load(),
		HistoryDropped:  s.dropped.Load(),
		QueueCapacity:   s.queueSize,
		WorkerCount:     s.workerCount,
		MaxHistoryLimit: s.maxHistoryLimit,
	}
	if s.started {
		stats.QueueLength = s.queue.Len()
		stats.HistoryWritten = s.pool.Processed()
		stats.HistoryFailed = s.pool.Failed()
	}
	s.mu.RUnlock()

	for q, c := range s.byQuality {
		stats.ByQuality[q.String()] = c.Load()
	}

	stats.CacheEntries = s.cache.Len(ctx)
	metrics.UpdateCacheEntries(int(stats.CacheEntries))

	if stats.Started {
		stats.HistoryRecords = s.store.Count(ctx)
		metrics.UpdateHistoryRecords(stats.HistoryRecords)
		metrics.UpdateWorkerCount(stats.WorkerCount)
	}
	return stats
}
