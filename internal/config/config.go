// Package config loads the .kestrel.yaml configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".kestrel.yaml"

// Config is the complete configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Watch      WatchConfig      `yaml:"watch"`
	Remote     RemoteConfig     `yaml:"remote"`
	LogLevel   string           `yaml:"log_level"`
}

// PathsConfig selects what gets indexed.
type PathsConfig struct {
	// IndexDir holds the persistent index (default: .kestrel/index).
	IndexDir string `yaml:"index_dir"`

	// Exclude are glob patterns that never index.
	Exclude []string `yaml:"exclude"`

	// IncludeExtensions limits indexing to these extensions. Empty means all.
	IncludeExtensions []string `yaml:"include_extensions"`
}

// SearchConfig tunes the ranker.
type SearchConfig struct {
	// SemanticWeight is the semantic share of RRF fusion (0-1).
	SemanticWeight float64 `yaml:"semantic_weight"`

	// RRFK is the RRF smoothing constant.
	RRFK int `yaml:"rrf_k"`

	// MaxResults caps the per-query result limit.
	MaxResults int `yaml:"max_results"`
}

// EmbeddingsConfig selects the embedding provider chain.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string `yaml:"provider"`
	OllamaHost string `yaml:"ollama_host"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// WatchConfig tunes the incremental indexer.
type WatchConfig struct {
	// DebounceMs is the event coalescing window in milliseconds.
	DebounceMs int `yaml:"debounce_ms"`
}

// RemoteConfig points at the optional overlay snapshot mirror.
type RemoteConfig struct {
	// CacheDir holds the read-only overlay index. Empty disables the overlay.
	CacheDir string `yaml:"cache_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			IndexDir: filepath.Join(".kestrel", "index"),
			Exclude: []string{
				"**/node_modules/**",
				"**/.build/**",
				"**/build/**",
				"**/dist/**",
			},
		},
		Search: SearchConfig{
			SemanticWeight: 0.65,
			RRFK:           60,
			MaxResults:     100,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Dimensions: 768,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
		LogLevel: "info",
	}
}

// Load reads the config at root, layering file values over defaults and env
// overrides over both. A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, kerrors.ConfigError(fmt.Sprintf("parse %s: %v", path, err), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, kerrors.ConfigError(fmt.Sprintf("read %s: %v", path, err), err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KESTREL_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("KESTREL_RRF_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.RRFK = n
		}
	}
	if v := os.Getenv("KESTREL_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("KESTREL_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return kerrors.ConfigError(
			fmt.Sprintf("semantic_weight must be in [0, 1], got %g", c.Search.SemanticWeight), nil)
	}
	if c.Search.RRFK < 1 {
		return kerrors.ConfigError(fmt.Sprintf("rrf_k must be >= 1, got %d", c.Search.RRFK), nil)
	}
	if c.Watch.DebounceMs < 0 {
		return kerrors.ConfigError(fmt.Sprintf("debounce_ms must be >= 0, got %d", c.Watch.DebounceMs), nil)
	}
	return nil
}

// DebounceWindow returns the watch debounce as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
