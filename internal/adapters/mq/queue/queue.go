// Package queue carries predictions from the request path to the history
// writers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Drop reasons reported to metrics.
const (
	reasonFull      = "full"
	reasonClosed    = "closed"
	reasonCancelled = "context_cancelled"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds p without blocking. Returns ErrFull or ErrClosed when p
	// was not accepted.
	Enqueue(ctx context.Context, p model.Prediction) error

	// Dequeue returns the receive side. It is closed, after the remaining
	// items are drained, once the queue is closed.
	Dequeue() <-chan model.Prediction

	Len() int
	Capacity() int

	// Close stops accepting new items. Safe to call more than once.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.Prediction
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Prediction, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a prediction to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p model.Prediction) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped(reasonClosed)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDropped(reasonCancelled)
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- p:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueDropped(reasonFull)
		return ErrFull
	}
}

// Dequeue returns the channel workers read from.
func (q *InMemoryQueue) Dequeue() <-chan model.Prediction { return q.items }

// Len returns the current number of queued predictions.
func (q *InMemoryQueue) Len() int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the queue bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
