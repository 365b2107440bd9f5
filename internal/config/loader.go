package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VERIDEX_CONFIG is set
//  3. env (prefix VERIDEX_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VERIDEX_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VERIDEX_ADDR, VERIDEX_CACHE_TTL_HOURS, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("VERIDEX_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "veridex_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.InterJobDelayMS < 0:
		return fmt.Errorf("%w: inter_job_delay_ms must not be negative", ErrInvalidConfig)
	case cfg.CacheTTLHours <= 0:
		return fmt.Errorf("%w: cache_ttl_hours must be positive", ErrInvalidConfig)
	case cfg.QueueCapacity <= 0:
		return fmt.Errorf("%w: queue_capacity must be positive", ErrInvalidConfig)
	case cfg.SourceTimeoutMS <= 0 || cfg.LLMTimeoutMS <= 0 || cfg.ProberTimeoutMS <= 0:
		return fmt.Errorf("%w: collaborator timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}
