package skillweave

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillweave/skillweave/nco"
)

// Config holds all configuration for the skillweave engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.skillweave/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "skillweave". The file will be <DBName>.db inside the
	// storage directory (~/.skillweave/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.skillweave/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Extraction thresholds, keyword sets, and page concurrency.
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`

	// Embedding provider used for semantic matching. Leave Provider
	// empty to run extraction-only (matching disabled).
	Embedding EmbedConfig `json:"embedding" yaml:"embedding"`

	// Retrieval weights for RRF
	WeightVector float64 `json:"weight_vector" yaml:"weight_vector"`
	WeightFTS    float64 `json:"weight_fts" yaml:"weight_fts"`

	// TopK is the default number of matches returned per query.
	TopK int `json:"top_k" yaml:"top_k"`

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// ExtractionConfig tunes the PDF extraction pipeline.
type ExtractionConfig struct {
	Limits     nco.Limits           `json:"limits" yaml:"limits"`
	Classifier nco.ClassifierConfig `json:"classifier" yaml:"classifier"`

	// Workers bounds concurrent page reads per document.
	Workers int `json:"workers" yaml:"workers"`
}

// EmbedConfig configures a single embedding provider endpoint.
type EmbedConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.skillweave/skillweave.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "skillweave",
		StorageDir: "home",
		Extraction: ExtractionConfig{
			Limits:  nco.DefaultLimits(),
			Workers: 4,
		},
		Embedding: EmbedConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		WeightVector: 1.0,
		WeightFTS:    1.0,
		TopK:         5,
		EmbeddingDim: 768,
	}
}

// LoadConfig reads a config file (YAML or JSON by extension), applies
// SKILLWEAVE_* environment overrides, and validates the result. Missing
// fields keep their DefaultConfig values. An empty path loads defaults
// plus environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing yaml config: %w", err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing json config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from SKILLWEAVE_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SKILLWEAVE_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SKILLWEAVE_EMBED_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("SKILLWEAVE_EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("SKILLWEAVE_EMBED_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("SKILLWEAVE_EMBED_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("SKILLWEAVE_EMBED_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.EmbeddingDim = n
		}
	}
	if v := os.Getenv("SKILLWEAVE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Extraction.Workers = n
		}
	}

	// Fallback: check well-known provider env vars for API keys.
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.WeightVector < 0 {
		return fmt.Errorf("%w: weight_vector must be >= 0, got %v", ErrInvalidConfig, c.WeightVector)
	}
	if c.WeightFTS < 0 {
		return fmt.Errorf("%w: weight_fts must be >= 0, got %v", ErrInvalidConfig, c.WeightFTS)
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 0, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding_dim must be > 0, got %d", ErrInvalidConfig, c.EmbeddingDim)
	}
	if c.Extraction.Workers < 0 {
		return fmt.Errorf("%w: extraction workers must be >= 0, got %d", ErrInvalidConfig, c.Extraction.Workers)
	}
	l := c.Extraction.Limits
	if l.MinTitleLen < 0 || l.MinDescriptionLen < 0 || l.ShortDescriptionLen < 0 {
		return fmt.Errorf("%w: extraction limits must be >= 0", ErrInvalidConfig)
	}
	cc := c.Extraction.Classifier
	if cc.CodeMin != 0 && cc.CodeMax != 0 && cc.CodeMin > cc.CodeMax {
		return fmt.Errorf("%w: code_min %d exceeds code_max %d", ErrInvalidConfig, cc.CodeMin, cc.CodeMax)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "skillweave"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".skillweave")
		return filepath.Join(dir, name+".db")
	}
}
