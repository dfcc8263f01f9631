package repository

import "time"

const (
	defaultCapacity              = 1_000
	defaultMetricsUpdateInterval = 5 * time.Second
)

type options struct {
	capacity              int
	metricsUpdateInterval time.Duration
}

// Option applies a configuration option to a Store.
type Option func(*options)

// WithCapacity bounds the in-memory ring. Ignored by the SQLite store.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{capacity: defaultCapacity, metricsUpdateInterval: defaultMetricsUpdateInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
