package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
)

// Ollama is an LLM client for a local Ollama server.
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama creates a new Ollama client. baseURL defaults to
// "http://localhost:11434" when empty.
func NewOllama(model, baseURL string) (*Ollama, error) {
	if model == "" {
		return nil, backend.Configf("ollama llm model name is empty")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, backend.Configf("invalid ollama base URL %q: %v", baseURL, err)
	}

	hc := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Generate completes the prompt with a non-streaming generate call.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", backend.Transient("generate", err)
	}
	return sb.String(), nil
}

var _ LLM = (*Ollama)(nil)
