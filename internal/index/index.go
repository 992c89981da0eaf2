package index

import (
	"context"
	"errors"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// ErrEmpty is returned by Query when the index holds no vectors at all.
// Callers treat it as "no evidence" rather than a failure.
var ErrEmpty = errors.New("vector index is empty")

// Match is a chunk returned by a similarity search, with its score. Lower
// scores mean closer matches under an L2 metric.
type Match struct {
	Chunk models.Chunk
	Score float32
}

// Index stores embedded chunks and serves nearest-neighbor queries.
//
// Upsert is keyed on the chunk ID, which is derived from the chunk's source,
// position and content hash. Re-indexing an unchanged document is therefore a
// no-op, never a duplicate.
type Index interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int64, error)
}
