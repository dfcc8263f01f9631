package cache

import (
	"time"

	"github.com/okian/slumber/pkg/logger"
)

type options struct {
	maxSize   int
	ttl       time.Duration
	keyPrefix string
	log       logger.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithMaxSize bounds the in-memory cache. Values <= 0 keep the default.
func WithMaxSize(n int) Option {
	return func(o *options) { o.maxSize = n }
}

// WithTTL sets the expiry of Redis entries. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}
