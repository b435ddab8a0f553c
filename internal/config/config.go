// Package config provides configuration loading and structs for the pagesearch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxUploadMB caps the size of an uploaded document.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// StorageConfig holds the documents directory and the paths of persisted artifacts.
type StorageConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
	IndexPath    string `yaml:"index_path"`
	MetadataPath string `yaml:"metadata_path"`
	RegistryPath string `yaml:"registry_path"`
	// IndexType is "flat" (default) or "faiss" (requires the faiss build tag).
	IndexType string `yaml:"index_type"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx" or "hash".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// Default consolidation thresholds, in squared L2 distance.
const (
	DefaultMinThreshold          = 1.75
	DefaultMostRelevantThreshold = 1.25
)

// SearchConfig holds query and consolidation settings. The thresholds are
// pointers so that an explicit zero is kept.
type SearchConfig struct {
	DefaultK              int      `yaml:"default_k"`
	MaxK                  int      `yaml:"max_k"`
	MinThreshold          *float64 `yaml:"min_threshold"`
	MostRelevantThreshold *float64 `yaml:"most_relevant_threshold"`
	PreviewLength         int      `yaml:"preview_length"`
}

// MinThresholdOrDefault returns the distance beyond which hits are dropped.
func (s SearchConfig) MinThresholdOrDefault() float64 {
	if s.MinThreshold != nil {
		return *s.MinThreshold
	}
	return DefaultMinThreshold
}

// MostRelevantThresholdOrDefault returns the distance within which a range is most relevant.
func (s SearchConfig) MostRelevantThresholdOrDefault() float64 {
	if s.MostRelevantThreshold != nil {
		return *s.MostRelevantThreshold
	}
	return DefaultMostRelevantThreshold
}

// Float64 returns a pointer to v, for setting optional float fields.
func Float64(v float64) *float64 {
	return &v
}

// WatchConfig holds documents-directory watch settings.
type WatchConfig struct {
	Enabled    *bool    `yaml:"enabled"`
	Patterns   []string `yaml:"patterns"`
	Exclude    []string `yaml:"exclude"`
	DebounceMS int      `yaml:"debounce_ms"`
}

// EnabledOrDefault returns whether to watch the documents directory; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DocumentsDir = expandPath(cfg.Storage.DocumentsDir, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.MetadataPath = expandPath(cfg.Storage.MetadataPath, configDir)
	cfg.Storage.RegistryPath = expandPath(cfg.Storage.RegistryPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default configuration with environment overrides applied.
// Relative paths resolve against the working directory.
func Default() (*Config, error) {
	var cfg Config
	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	minT, mostT := c.Search.MinThresholdOrDefault(), c.Search.MostRelevantThresholdOrDefault()
	if minT < 0 {
		return fmt.Errorf("search.min_threshold must not be negative, got %g", minT)
	}
	if mostT < 0 {
		return fmt.Errorf("search.most_relevant_threshold must not be negative, got %g", mostT)
	}
	if mostT > minT {
		return fmt.Errorf("search.most_relevant_threshold (%g) exceeds search.min_threshold (%g)", mostT, minT)
	}
	if c.Search.MaxK > 0 && c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Embedding.Provider {
	case "onnx", "hash":
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
