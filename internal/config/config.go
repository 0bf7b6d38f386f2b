// Package config loads and validates the run configuration from flags,
// environment variables and an optional config file, via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"autometa/internal/engine"
	"autometa/internal/pool"
)

// Keyword caps for the export payload. Values outside the range are clamped.
const (
	MinKeywordCap     = 8
	MaxKeywordCap     = 49
	DefaultKeywordCap = 49
)

const (
	DefaultBaseDelay = 10 * time.Second
	DefaultTimeout   = 60 * time.Second
)

// Config holds everything a run needs.
type Config struct {
	// InputDir is scanned for media files; OutputDir receives the CSV
	// export and processed copies.
	InputDir  string
	OutputDir string

	// APIKeys is the credential pool. At least one key is required.
	APIKeys []string
	// Paid lifts the per-credential pacing interval and decouples the
	// worker count from the credential count.
	Paid bool

	// Workers is the window concurrency. Zero means one worker per
	// credential. The effective value is clamped to [1, MaxWorkers] and,
	// in restricted mode, to the credential count.
	Workers int

	// Model selects a fixed model by name; empty means automatic rotation
	// over the roster.
	Model  string
	Models []pool.Model

	// BaseDelay is the healthy inter-window cooldown.
	BaseDelay time.Duration
	// AutoRetry re-queues retryable failures for another pass.
	AutoRetry bool

	// Endpoint overrides the inference API base URL (for testing).
	Endpoint string
	Timeout  time.Duration

	// KeywordCap bounds how many keywords the export keeps per file.
	KeywordCap int
	// EmbedMetadata writes the payload into the output files with exiftool.
	EmbedMetadata bool

	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string

	LogLevel string
}

// defaultModels is the rotation roster when no roster is configured.
func defaultModels() []pool.Model {
	return []pool.Model{
		{Name: "gemini-2.0-flash"},
		{Name: "gemini-2.5-flash"},
		{Name: "gemini-2.5-pro", Thinking: true},
	}
}

// SetDefaults registers defaults on a viper instance. Call before binding
// flags so explicit values win.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("base_delay", DefaultBaseDelay)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("keyword_cap", DefaultKeywordCap)
	v.SetDefault("auto_retry", true)
	v.SetDefault("embed_metadata", true)
	v.SetDefault("log_level", "info")
}

// FromViper builds and validates a Config from a prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		InputDir:      v.GetString("input_dir"),
		OutputDir:     v.GetString("output_dir"),
		APIKeys:       v.GetStringSlice("api_keys"),
		Paid:          v.GetBool("paid"),
		Workers:       v.GetInt("workers"),
		Model:         v.GetString("model"),
		BaseDelay:     v.GetDuration("base_delay"),
		AutoRetry:     v.GetBool("auto_retry"),
		Endpoint:      v.GetString("endpoint"),
		Timeout:       v.GetDuration("timeout"),
		KeywordCap:    v.GetInt("keyword_cap"),
		EmbedMetadata: v.GetBool("embed_metadata"),
		MetricsAddr:   v.GetString("metrics_addr"),
		LogLevel:      v.GetString("log_level"),
		Models:        defaultModels(),
	}

	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required (api_keys)")
	}
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("input_dir is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}
	if cfg.Model != "" && !rosterHas(cfg.Models, cfg.Model) {
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = len(cfg.APIKeys)
	}
	if !cfg.Paid && cfg.Workers > len(cfg.APIKeys) {
		// Without paid access each in-flight request needs its own key.
		cfg.Workers = len(cfg.APIKeys)
	}
	if cfg.Workers > engine.MaxWorkers {
		cfg.Workers = engine.MaxWorkers
	}

	if cfg.KeywordCap < MinKeywordCap {
		cfg.KeywordCap = MinKeywordCap
	}
	if cfg.KeywordCap > MaxKeywordCap {
		cfg.KeywordCap = MaxKeywordCap
	}

	if cfg.BaseDelay < 0 {
		return nil, fmt.Errorf("base_delay must not be negative")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return cfg, nil
}

// Credentials converts the configured keys into pool credentials.
func (c *Config) Credentials() []pool.Credential {
	creds := make([]pool.Credential, 0, len(c.APIKeys))
	for _, k := range c.APIKeys {
		creds = append(creds, pool.Credential{Key: k, Paid: c.Paid})
	}
	return creds
}

// CredentialInterval is the per-key pacing interval for the pool. Paid
// access disables pacing.
func (c *Config) CredentialInterval() time.Duration {
	if c.Paid {
		return -1
	}
	return pool.DefaultCredentialInterval
}

func rosterHas(models []pool.Model, name string) bool {
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}
