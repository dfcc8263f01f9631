package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/slumber/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.GoodThreshold, convey.ShouldEqual, 9)
				convey.So(cfg.CacheSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.RateLimitPerMinute, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SLUMBER_ADDR", ":8080")
			_ = os.Setenv("SLUMBER_GOOD_THRESHOLD", "10")
			_ = os.Setenv("SLUMBER_REDIS_ADDR", "localhost:6379")
			_ = os.Setenv("SLUMBER_HISTORY_PATH", "/tmp/history.db")
			_ = os.Setenv("SLUMBER_RATE_LIMIT_PER_MINUTE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.GoodThreshold, convey.ShouldEqual, 10)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.HistoryPath, convey.ShouldEqual, "/tmp/history.db")
				convey.So(cfg.RateLimitPerMinute, convey.ShouldEqual, 0)
				convey.So(cfg.AverageThreshold, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
good_threshold: 8
average_threshold: 4
stress_min: 0
stress_max: 10
queue_size: 64
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SLUMBER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.GoodThreshold, convey.ShouldEqual, 8)
				convey.So(cfg.AverageThreshold, convey.ShouldEqual, 4)
				convey.So(cfg.StressMin, convey.ShouldEqual, 0)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 1_000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 24\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SLUMBER_CONFIG", tmpFile)
			_ = os.Setenv("SLUMBER_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SLUMBER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SLUMBER_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SLUMBER_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When thresholds are inverted through env", func() {
			_ = os.Setenv("SLUMBER_GOOD_THRESHOLD", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects the config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SLUMBER_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"SLUMBER_CONFIG", "SLUMBER_ADDR", "SLUMBER_GOOD_THRESHOLD", "SLUMBER_AVERAGE_THRESHOLD",
		"SLUMBER_REDIS_ADDR", "SLUMBER_HISTORY_PATH", "SLUMBER_RATE_LIMIT_PER_MINUTE",
		"SLUMBER_WORKER_COUNT", "SLUMBER_QUEUE_SIZE",
	} {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "slumber-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
