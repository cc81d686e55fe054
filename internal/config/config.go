// Package config loads project settings from .medulla/config.json and the
// MEDULLA_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables recognized at startup.
const (
	EnvLogLevel         = "MEDULLA_LOG_LEVEL"
	EnvRequestTimeoutMS = "MEDULLA_REQUEST_TIMEOUT_MS"
	EnvMaxBatchSize     = "MEDULLA_MAX_BATCH_SIZE"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxBatchSize   = 100
)

// Embeddings configures the optional semantic search provider.
type Embeddings struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // "local" (Ollama) or "openai"
	Model    string `json:"model"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Snapshot configures the markdown snapshot renderer.
type Snapshot struct {
	Enabled bool `json:"enabled"`
}

// Config is the persisted project configuration plus env-derived runtime
// settings (not serialized).
type Config struct {
	Embeddings Embeddings `json:"embeddings"`
	Snapshot   Snapshot   `json:"snapshot"`

	RequestTimeout time.Duration `json:"-"`
	MaxBatchSize   int           `json:"-"`
}

// Default returns the configuration written at project init.
func Default() *Config {
	return &Config{
		Embeddings: Embeddings{
			Enabled:  false,
			Provider: "local",
			Model:    "nomic-embed-text",
		},
		Snapshot:       Snapshot{Enabled: true},
		RequestTimeout: DefaultRequestTimeout,
		MaxBatchSize:   DefaultMaxBatchSize,
	}
}

// Load reads path, falling back to defaults when the file is absent, and
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the serializable part of the config to path.
func (c *Config) Save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRequestTimeoutMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv(EnvMaxBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxBatchSize = n
		}
	}
}

// LogLevel returns the configured slog level name, "info" by default.
func LogLevel() string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}
	return "info"
}
