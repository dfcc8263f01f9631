package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/slumber/pkg/logger"
)

const (
	defaultKeyPrefix = "slumber:prediction:"
	scanBatch        = 500
)

// Connect builds a Redis client from an address or a redis:// URL.
func Connect(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	}), nil
}

type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

// NewRedis creates a cache backed by rdb. Entries are stored as JSON.
func NewRedis(rdb *redis.Client, opts ...Option) Cache {
	cfg := options{keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &redisCache{rdb: rdb, ttl: cfg.ttl, prefix: cfg.keyPrefix, log: cfg.log}
}

func (c *redisCache) key(k uint64) string {
	return fmt.Sprintf("%s%016x", c.prefix, k)
}

func (c *redisCache) Get(ctx context.Context, key uint64) (Entry, bool) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, "cache get failed", err)
		}
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || !e.Quality.Valid() {
		c.warn(ctx, "cache entry unreadable", err)
		return Entry{}, false
	}
	return e, true
}

func (c *redisCache) Set(ctx context.Context, key uint64, e Entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		c.warn(ctx, "cache entry encode failed", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.warn(ctx, "cache set failed", err)
	}
}

// Len counts keys under the prefix. Returns 0 when Redis is unreachable.
func (c *redisCache) Len(ctx context.Context) int64 {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			c.warn(ctx, "cache scan failed", err)
			return 0
		}
		total += int64(len(keys))
		if next == 0 {
			return total
		}
		cursor = next
	}
}

func (c *redisCache) warn(ctx context.Context, msg string, err error) {
	if c.log == nil {
		return
	}
	c.log.Warn(ctx, msg, logger.Error(err))
}
