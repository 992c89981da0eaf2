package embedding

import (
	"context"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
)

// OllamaModel is an Embedding client for a local Ollama server.
type OllamaModel struct {
	client *ollama.Client
	model  string
}

// NewOllamaModel creates a new OllamaModel client. baseURL defaults to
// "http://localhost:11434" when empty.
func NewOllamaModel(model, baseURL string) (*OllamaModel, error) {
	if model == "" {
		return nil, backend.Configf("ollama embedding model name is empty")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, backend.Configf("invalid ollama base URL %q: %v", baseURL, err)
	}

	hc := &http.Client{Timeout: 120 * time.Second}
	return &OllamaModel{client: ollama.NewClient(parsedURL, hc), model: model}, nil
}

// Embed generates the embedding vector for a single text.
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: text,
	})
	if err != nil {
		return nil, backend.Transient("embed", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, backend.Transient("embed", errMissingEmbeddings(0, 1))
	}
	return resp.Embeddings[0], nil
}

// EmbedBatch generates embedding vectors for a batch of texts.
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: texts,
	})
	if err != nil {
		return nil, backend.Transient("embed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, backend.Transient("embed", errMissingEmbeddings(len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

var _ Embedding = (*OllamaModel)(nil)
