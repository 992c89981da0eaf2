package embedding

import (
	"context"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
)

// OpenAIModel is an Embedding client for the OpenAI API (or any
// OpenAI-compatible proxy endpoint).
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a new OpenAIModel client. baseURL is optional and
// points embedding traffic at a proxy when set.
func NewOpenAIModel(apiKey, baseURL, modelName string) (*OpenAIModel, error) {
	if modelName == "" {
		return nil, backend.Configf("openai embedding model name is empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: modelName}, nil
}

// Embed generates the embedding vector for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embedding vectors for a batch of texts.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, backend.Transient("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, backend.Transient("embed", errMissingEmbeddings(len(resp.Data), len(texts)))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

var _ Embedding = (*OpenAIModel)(nil)
