package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/pkg/metrics"
)

// RingStore keeps the most recent predictions in a fixed-size ring.
// Once full, each Save overwrites the oldest entry.
type RingStore struct {
	mu     sync.RWMutex
	buf    []model.Prediction
	byID   map[string]int // id -> slot
	next   int            // slot for the next write
	count  int
	closed bool

	updater *updater
}

// NewRingStore constructs a ring store with configuration options.
func NewRingStore(ctx context.Context, opts ...Option) *RingStore {
	o := buildOptions(opts)
	s := &RingStore{
		buf:  make([]model.Prediction, o.capacity),
		byID: make(map[string]int, o.capacity),
	}
	s.updater = startUpdater(ctx, o.metricsUpdateInterval, s.Count)
	return s
}

// Capacity returns the maximum number of retained predictions.
func (s *RingStore) Capacity() int { return len(s.buf) }

// Save implements Store.Save.
func (s *RingStore) Save(_ context.Context, p model.Prediction) error {
	if err := validate(p); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if slot, ok := s.byID[p.ID]; ok {
		s.buf[slot] = p.Clone()
		return nil
	}

	if s.count == len(s.buf) {
		delete(s.byID, s.buf[s.next].ID)
	} else {
		s.count++
	}
	s.buf[s.next] = p.Clone()
	s.byID[p.ID] = s.next
	s.next = (s.next + 1) % len(s.buf)

	metrics.RecordHistoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Get implements Store.Get.
func (s *RingStore) Get(_ context.Context, id string) (model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.byID[id]
	if !ok {
		return model.Prediction{}, ErrNotFound
	}
	return s.buf[slot].Clone(), nil
}

// Recent implements Store.Recent.
func (s *RingStore) Recent(_ context.Context, n int) ([]model.Prediction, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > s.count {
		n = s.count
	}
	out := make([]model.Prediction, 0, n)
	for i := 1; i <= n; i++ {
		slot := (s.next - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[slot].Clone())
	}
	return out, nil
}

// Count implements Store.Count.
func (s *RingStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close stops the metrics updater. Further saves fail with ErrClosed.
func (s *RingStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.updater.stop()
	return nil
}
