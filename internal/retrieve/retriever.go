// Package retrieve turns a tracked metric into the evidence chunks most
// relevant to it, by embedding the metric name and searching the vector index.
package retrieve

import (
	"context"
	"fmt"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/embedding"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/index"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// DefaultTopK is the number of chunks retrieved per metric.
const DefaultTopK = 5

// Retriever embeds metric queries and searches the index.
type Retriever struct {
	embedder embedding.Embedding
	idx      index.Index
	topK     int
	log      *logger.Logger
}

// NewRetriever creates a Retriever. A non-positive topK falls back to
// DefaultTopK.
func NewRetriever(embedder embedding.Embedding, idx index.Index, topK int, log *logger.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, idx: idx, topK: topK, log: log}
}

// Retrieve returns the chunks most relevant to the metric, closest first.
// An empty index surfaces index.ErrEmpty so the caller can distinguish "no
// corpus yet" from a backend failure.
func (r *Retriever) Retrieve(ctx context.Context, metric models.Metric) ([]models.Chunk, error) {
	vector, err := r.embedder.Embed(ctx, metric.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query for metric '%s': %w", metric.Name, err)
	}

	matches, err := r.idx.Query(ctx, vector, r.topK)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, len(matches))
	for i, m := range matches {
		chunks[i] = m.Chunk
	}

	r.log.WithMetric(metric.Name).WithPayload(map[string]interface{}{"retrieved": len(chunks)}).
		Debug("retrieved evidence chunks")
	return chunks, nil
}
