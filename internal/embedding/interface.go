// Package embedding provides the text-embedding capability behind a narrow
// interface so the retriever and indexer never depend on a concrete provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/config"
)

// Embedding is the interface every embedding backend implements.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// New is a factory returning the embedding client selected by cfg.Provider.
// Unknown providers and missing credentials are configuration errors that
// abort the run.
func New(cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, backend.Configf("openai embedding requires an API key")
		}
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, backend.Configf("gemini embedding requires an API key")
		}
		return NewGoogleModel(cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "ollama":
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.Address)
	default:
		return nil, backend.Configf("unsupported embedding provider: %q", cfg.Provider)
	}
}

// errMissingEmbeddings reports a backend response whose embedding count does
// not match the input count.
func errMissingEmbeddings(got, want int) error {
	return fmt.Errorf("backend returned %d embeddings for %d inputs", got, want)
}
