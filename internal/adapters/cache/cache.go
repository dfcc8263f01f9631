// Package cache memoizes classification outcomes by habit fingerprint.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/slumber/internal/domain/quality"
)

const defaultMaxSize = 10_000

// Entry is a cached classification outcome.
type Entry struct {
	Quality quality.Quality `json:"quality"`
	Score   int             `json:"score"`
	Factors []string        `json:"factors"`
	Tips    []string        `json:"tips"`
}

// Cache stores entries keyed by fingerprint. Implementations are safe for
// concurrent use. A failing backend behaves like a miss.
type Cache interface {
	Get(ctx context.Context, key uint64) (Entry, bool)
	Set(ctx context.Context, key uint64, e Entry)
	Len(ctx context.Context) int64
}

// node is a single entry in the insertion-ordered list.
type node struct {
	key   uint64
	entry Entry
	next  *node
}

func (n *node) reset() {
	n.key = 0
	n.entry = Entry{}
	n.next = nil
}

// memoryCache keeps at most maxSize entries and evicts the oldest first.
type memoryCache struct {
	mu       sync.Mutex
	index    map[uint64]*node
	head     *node // oldest
	tail     *node // newest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewMemory creates a bounded in-memory cache.
func NewMemory(opts ...Option) Cache {
	c := &memoryCache{maxSize: defaultMaxSize}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize > 0 {
		c.maxSize = cfg.maxSize
	}
	c.index = make(map[uint64]*node, c.maxSize)
	c.nodePool = sync.Pool{New: func() interface{} { return &node{} }}
	return c
}

func (c *memoryCache) Get(_ context.Context, key uint64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.index[key]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(n.entry), true
}

func (c *memoryCache) Set(_ context.Context, key uint64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.index[key]; ok {
		n.entry = cloneEntry(e)
		return
	}
	if len(c.index) >= c.maxSize {
		c.evictOldest()
	}

	n := c.nodePool.Get().(*node)
	n.key = key
	n.entry = cloneEntry(e)
	if c.tail == nil {
		c.head = n
	} else {
		c.tail.next = n
	}
	c.tail = n
	c.index[key] = n
	c.size.Add(1)
}

func (c *memoryCache) Len(context.Context) int64 { return c.size.Load() }

// evictOldest must be called with mu held.
func (c *memoryCache) evictOldest() {
	n := c.head
	if n == nil {
		return
	}
	c.head = n.next
	if c.head == nil {
		c.tail = nil
	}
	delete(c.index, n.key)
	n.reset()
	c.nodePool.Put(n)
	c.size.Add(-1)
}

func cloneEntry(e Entry) Entry {
	if e.Tips != nil {
		e.Tips = append([]string(nil), e.Tips...)
	}
	if e.Factors != nil {
		e.Factors = append([]string(nil), e.Factors...)
	}
	return e
}
