package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/pkg/logger"
	"github.com/okian/slumber/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerName     = "worker"
	metricsUpdateInterval = 5 * time.Second
)

// ErrShutdownTimeout is returned when workers do not drain in time.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Saver persists a prediction.
type Saver interface {
	Save(ctx context.Context, p model.Prediction) error
}

// Queue defines how workers receive predictions.
type Queue interface {
	Dequeue() <-chan model.Prediction
	Len() int
}

// InMemoryWorker persists predictions read off the queue.
type InMemoryWorker struct {
	queue Queue
	saver Saver
	name  string

	// processed counts successful saves, shared with the pool.
	processed *atomic.Int64
	failed    *atomic.Int64

	stop chan struct{}
	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		saver:     saver,
		name:      defaultWorkerName,
		processed: &atomic.Int64{},
		failed:    &atomic.Int64{},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != defaultWorkerName {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes predictions until the queue is drained and closed, ctx is
// cancelled, or the worker is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue()
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case p, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, p); err != nil {
				w.logger.Error(ctx, "history write failed",
					logger.String("prediction_id", p.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns the number of predictions this worker saved.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, p model.Prediction) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateQueueSize(w.queue.Len())
	}()

	if err := w.saver.Save(ctx, p); err != nil {
		w.failed.Add(1)
		metrics.RecordHistoryWriteError()
		return fmt.Errorf("save prediction %s: %w", p.ID, err)
	}
	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64
	started   atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 means one per CPU.
func NewPool(workerCount int, queue Queue, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		stop:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(queue, saver, workerOpts...)
		w.processed = &p.processed
		w.failed = &p.failed
		w.stop = p.stop
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of predictions saved by all workers.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of failed saves.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runMetricsUpdater(ctx)
	}()
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(p.queue.Len())
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it. If ctx
// expires first, the workers are stopped and the rest of the queue is lost.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drained := make(chan struct{})
	if p.started.Load() {
		go func() {
			for _, w := range p.workers {
				<-w.Done()
			}
			close(drained)
		}()
	} else {
		close(drained)
	}

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out", logger.Int("pending", p.queue.Len()))
		err = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}

	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	return err
}
