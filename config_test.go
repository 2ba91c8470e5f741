package skillweave

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv neutralizes SKILLWEAVE_* overrides so file-based tests see
// only their own values. applyEnv ignores empty strings.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SKILLWEAVE_DB_PATH",
		"SKILLWEAVE_EMBED_PROVIDER",
		"SKILLWEAVE_EMBED_MODEL",
		"SKILLWEAVE_EMBED_BASE_URL",
		"SKILLWEAVE_EMBED_API_KEY",
		"SKILLWEAVE_EMBED_DIM",
		"SKILLWEAVE_WORKERS",
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DBName != "skillweave" {
		t.Errorf("DBName = %q, want skillweave", cfg.DBName)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("Embedding.Provider = %q, want ollama", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("Embedding.Model = %q, want nomic-embed-text", cfg.Embedding.Model)
	}
	if cfg.WeightVector != 1.0 || cfg.WeightFTS != 1.0 {
		t.Errorf("weights = %v/%v, want 1.0/1.0", cfg.WeightVector, cfg.WeightFTS)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.EmbeddingDim != 768 {
		t.Errorf("EmbeddingDim = %d, want 768", cfg.EmbeddingDim)
	}
	if cfg.Extraction.Limits.MinDescriptionLen != 21 {
		t.Errorf("MinDescriptionLen = %d, want 21", cfg.Extraction.Limits.MinDescriptionLen)
	}
	if cfg.Extraction.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Extraction.Workers)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"db_path": "/tmp/custom.db",
		"top_k": 10,
		"embedding": {
			"provider": "openai",
			"model": "text-embedding-3-small"
		},
		"embedding_dim": 1536
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.TopK != 10 {
		t.Errorf("TopK = %d, want 10", cfg.TopK)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("Embedding.Provider = %q, want openai", cfg.Embedding.Provider)
	}
	if cfg.EmbeddingDim != 1536 {
		t.Errorf("EmbeddingDim = %d, want 1536", cfg.EmbeddingDim)
	}
	// Fields absent from the file keep their defaults.
	if cfg.WeightVector != 1.0 {
		t.Errorf("WeightVector = %v, want default 1.0", cfg.WeightVector)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
weight_vector: 2.5
weight_fts: 0.5
extraction:
  workers: 8
  limits:
    min_description_len: 30
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.WeightVector != 2.5 || cfg.WeightFTS != 0.5 {
		t.Errorf("weights = %v/%v, want 2.5/0.5", cfg.WeightVector, cfg.WeightFTS)
	}
	if cfg.Extraction.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Extraction.Workers)
	}
	if cfg.Extraction.Limits.MinDescriptionLen != 30 {
		t.Errorf("MinDescriptionLen = %d, want 30", cfg.Extraction.Limits.MinDescriptionLen)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want default 5", cfg.TopK)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadConfig() with missing file succeeded, want error")
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if cfg.DBName != "skillweave" || cfg.TopK != 5 {
		t.Errorf("LoadConfig(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKILLWEAVE_DB_PATH", "/tmp/env.db")
	t.Setenv("SKILLWEAVE_EMBED_PROVIDER", "lmstudio")
	t.Setenv("SKILLWEAVE_EMBED_DIM", "384")
	t.Setenv("SKILLWEAVE_WORKERS", "2")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q, want /tmp/env.db", cfg.DBPath)
	}
	if cfg.Embedding.Provider != "lmstudio" {
		t.Errorf("Embedding.Provider = %q, want lmstudio", cfg.Embedding.Provider)
	}
	if cfg.EmbeddingDim != 384 {
		t.Errorf("EmbeddingDim = %d, want 384", cfg.EmbeddingDim)
	}
	if cfg.Extraction.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Extraction.Workers)
	}
}

func TestLoadConfigAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKILLWEAVE_EMBED_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("Embedding.APIKey = %q, want sk-from-env", cfg.Embedding.APIKey)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative vector weight", func(c *Config) { c.WeightVector = -1 }},
		{"negative fts weight", func(c *Config) { c.WeightFTS = -0.5 }},
		{"negative top k", func(c *Config) { c.TopK = -1 }},
		{"zero embedding dim", func(c *Config) { c.EmbeddingDim = 0 }},
		{"negative workers", func(c *Config) { c.Extraction.Workers = -2 }},
		{"negative limits", func(c *Config) { c.Extraction.Limits.MinTitleLen = -1 }},
		{"inverted code range", func(c *Config) {
			c.Extraction.Classifier.CodeMin = 9000
			c.Extraction.Classifier.CodeMax = 1000
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/data/explicit.db"}
	if got := cfg.resolveDBPath(); got != "/data/explicit.db" {
		t.Errorf("resolveDBPath() = %q, want explicit path", got)
	}

	cfg = Config{DBName: "custom", StorageDir: "local"}
	if got := cfg.resolveDBPath(); got != "custom.db" {
		t.Errorf("resolveDBPath() = %q, want custom.db", got)
	}

	cfg = Config{DBName: "custom", StorageDir: "home"}
	got := cfg.resolveDBPath()
	if !strings.Contains(got, ".skillweave") || !strings.HasSuffix(got, "custom.db") {
		t.Errorf("resolveDBPath() = %q, want ~/.skillweave/custom.db", got)
	}

	cfg = Config{}
	if got := cfg.resolveDBPath(); !strings.HasSuffix(got, "skillweave.db") {
		t.Errorf("resolveDBPath() = %q, want skillweave.db suffix", got)
	}
}
