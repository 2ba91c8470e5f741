// Package embed generates text embeddings through local or hosted
// embedding APIs. Providers share an OpenAI-compatible HTTP client;
// Ollama additionally uses its native batch endpoint.
package embed

import (
	"context"
	"fmt"
)

// Provider is the interface for embedding backends.
type Provider interface {
	// Embed generates embeddings for a batch of texts. The returned
	// slice is index-aligned with the input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dim reports the configured embedding dimension.
	Dim() int

	// Name identifies the provider for logging.
	Name() string
}

// Config configures an embedding provider.
type Config struct {
	Provider string `json:"provider"` // ollama, lmstudio, openai, gemini, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Dim      int    `json:"dim"`
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "lmstudio":
		return NewLMStudio(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	case "gemini":
		return NewGemini(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("embedding provider not specified")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
