package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/veridex/veridex/internal/config"
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.InterJobDelayMS, convey.ShouldEqual, 2000)
				convey.So(cfg.CacheTTLHours, convey.ShouldEqual, 24)
				convey.So(cfg.LLMModel, convey.ShouldEqual, "gpt-4o-mini")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VERIDEX_ADDR", ":8080")
			_ = os.Setenv("VERIDEX_INTER_JOB_DELAY_MS", "500")
			_ = os.Setenv("VERIDEX_CACHE_TTL_HOURS", "12")
			_ = os.Setenv("VERIDEX_LLM_MODEL", "local-model")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.InterJobDelayMS, convey.ShouldEqual, 500)
				convey.So(cfg.CacheTTLHours, convey.ShouldEqual, 12)
				convey.So(cfg.LLMModel, convey.ShouldEqual, "local-model")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":7070"
inter_job_delay_ms: 250
queue_capacity: 64
indexer_base_url: "http://indexer:8545"
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("VERIDEX_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values win over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.InterJobDelayMS, convey.ShouldEqual, 250)
				convey.So(cfg.QueueCapacity, convey.ShouldEqual, 64)
				convey.So(cfg.IndexerBaseURL, convey.ShouldEqual, "http://indexer:8545")
			})
		})

		convey.Convey("When the config is invalid", func() {
			_ = os.Setenv("VERIDEX_CACHE_TTL_HOURS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails with ErrInvalidConfig", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "cache_ttl_hours")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"VERIDEX_CONFIG",
		"VERIDEX_ADDR",
		"VERIDEX_INTER_JOB_DELAY_MS",
		"VERIDEX_CACHE_TTL_HOURS",
		"VERIDEX_QUEUE_CAPACITY",
		"VERIDEX_LLM_MODEL",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "veridex.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
