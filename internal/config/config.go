// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// GoodThreshold and AverageThreshold are the minimum habit scores for
	// the Good and Average categories.
	GoodThreshold    int `koanf:"good_threshold"`
	AverageThreshold int `koanf:"average_threshold"`

	// StressMin and StressMax bound the stress_level slider.
	StressMin int `koanf:"stress_min"`
	StressMax int `koanf:"stress_max"`

	// CacheSize bounds the in-memory prediction cache.
	CacheSize int `koanf:"cache_size"`

	// CacheTTLSeconds is the expiry applied to Redis cache entries.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// RedisAddr switches the prediction cache to Redis when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// HistorySize bounds the in-memory prediction history.
	HistorySize int `koanf:"history_size"`

	// HistoryPath switches prediction history to a SQLite file when set.
	HistoryPath string `koanf:"history_path"`

	// QueueSize bounds the history write queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of history writer workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxHistoryLimit caps GET /predictions?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// RateLimitPerMinute caps POST /predict per client IP; 0 disables limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// ScoringLatencyMinMS and ScoringLatencyMaxMS simulate an external model call.
	ScoringLatencyMinMS int `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int `koanf:"scoring_latency_max_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		GoodThreshold:      9,
		AverageThreshold:   5,
		StressMin:          1,
		StressMax:          10,
		CacheSize:          10_000,
		CacheTTLSeconds:    3600,
		HistorySize:        1_000,
		QueueSize:          1_024,
		WorkerCount:        runtime.NumCPU(),
		MaxHistoryLimit:    100,
		RateLimitPerMinute: 60,
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.AverageThreshold > c.GoodThreshold:
		return fmt.Errorf("%w: average_threshold %d exceeds good_threshold %d", ErrInvalidConfig, c.AverageThreshold, c.GoodThreshold)
	case c.StressMin > c.StressMax:
		return fmt.Errorf("%w: stress_min %d exceeds stress_max %d", ErrInvalidConfig, c.StressMin, c.StressMax)
	case c.ScoringLatencyMaxMS < c.ScoringLatencyMinMS:
		return fmt.Errorf("%w: scoring_latency_max_ms below scoring_latency_min_ms", ErrInvalidConfig)
	case c.CacheSize < 0, c.HistorySize < 0, c.QueueSize < 0, c.RateLimitPerMinute < 0:
		return fmt.Errorf("%w: sizes and limits must not be negative", ErrInvalidConfig)
	}
	return nil
}
