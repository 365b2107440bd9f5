// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// InterJobDelayMS is the pause between two drained evaluation jobs.
	// Keeps upstream collaborators inside their rate limits.
	InterJobDelayMS int `koanf:"inter_job_delay_ms"`

	// QueueCapacity bounds the pending job list.
	QueueCapacity int `koanf:"queue_capacity"`

	// CacheTTLHours bounds how long an automated evaluation stays servable.
	CacheTTLHours int `koanf:"cache_ttl_hours"`

	// MaxHistoryLimit caps GET /insights/{subject}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// MaxTopLimit caps GET /top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`

	// IndexerBaseURL is the chain indexer API serving stats and ratings.
	IndexerBaseURL string `koanf:"indexer_base_url"`

	// RegistryBaseURL is the model registry API serving cards and benchmarks.
	RegistryBaseURL string `koanf:"registry_base_url"`

	// ProberBaseURL is the security prober collaborator.
	ProberBaseURL string `koanf:"prober_base_url"`

	// WebhookURL receives best-effort high-risk alerts. Empty disables them.
	WebhookURL string `koanf:"webhook_url"`

	// Language model service (OpenAI-compatible endpoint).
	LLMBaseURL string `koanf:"llm_base_url"`
	LLMModel   string `koanf:"llm_model"`
	LLMAPIKey  string `koanf:"llm_api_key"`

	// Per-collaborator call budgets. Every outbound call carries one of
	// these explicitly instead of inheriting a transport default.
	SourceTimeoutMS int `koanf:"source_timeout_ms"`
	LLMTimeoutMS    int `koanf:"llm_timeout_ms"`
	ProberTimeoutMS int `koanf:"prober_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9090",
		InterJobDelayMS: 2000,
		QueueCapacity:   10_000,
		CacheTTLHours:   24,
		MaxHistoryLimit: 50,
		MaxTopLimit:     100,
		IndexerBaseURL:  "http://localhost:8545",
		RegistryBaseURL: "http://localhost:8700",
		ProberBaseURL:   "http://localhost:8710",
		WebhookURL:      "",
		LLMBaseURL:      "https://api.openai.com/v1",
		LLMModel:        "gpt-4o-mini",
		LLMAPIKey:       "",
		SourceTimeoutMS: 10_000,
		LLMTimeoutMS:    30_000,
		ProberTimeoutMS: 60_000,
	}
}
