// Package llm provides the text-generation capability used by the
// significance gate. The interface is intentionally narrow: the gate sends a
// structured prompt and interprets the raw string that comes back.
package llm

import (
	"context"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/config"
)

// LLM is the interface every generation backend implements.
type LLM interface {
	// Generate completes the given prompt and returns the model's text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// New is a factory returning the generation client selected by cfg.Provider.
func New(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, backend.Configf("openai llm requires an API key")
		}
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, backend.Configf("gemini llm requires an API key")
		}
		return NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.Address)
	default:
		return nil, backend.Configf("unsupported llm provider: %q", cfg.Provider)
	}
}
