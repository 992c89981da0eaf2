package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/database/milvus"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// Schema fields of the chunk collection.
const (
	fieldID            = "id"
	fieldDocumentID    = "document_id"
	fieldSourceName    = "source_name"
	fieldSequenceIndex = "sequence_index"
	fieldText          = "text"
	fieldContentHash   = "content_hash"
	fieldEmbedding     = "embedding"
)

// MilvusIndex is the production Index, backed by a Milvus collection.
type MilvusIndex struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dim        int
}

// NewMilvusIndex creates a MilvusIndex over the shared Milvus client.
func NewMilvusIndex(mc *milvus.Client, log *logger.Logger) (*MilvusIndex, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusIndex{
		log:        log,
		client:     mc.Client,
		collection: mc.Config.Collection,
		dim:        mc.Config.Dim,
	}, nil
}

// Upsert writes the chunks into the collection, replacing any rows that
// already carry the same chunk ID.
func (m *MilvusIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	seqs := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	hashes := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))

	for i, c := range chunks {
		if len(c.Vector) != m.dim {
			return fmt.Errorf("chunk %s has embedding dimension %d, collection expects %d", c.ID, len(c.Vector), m.dim)
		}
		ids[i] = c.ID
		docIDs[i] = c.DocumentID
		sources[i] = c.SourceName
		seqs[i] = int64(c.SequenceIndex)
		texts[i] = c.Text
		hashes[i] = c.ContentHash
		vectors[i] = c.Vector
	}

	_, err := m.client.Upsert(ctx, m.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldDocumentID, docIDs),
		entity.NewColumnVarChar(fieldSourceName, sources),
		entity.NewColumnInt64(fieldSequenceIndex, seqs),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldContentHash, hashes),
		entity.NewColumnFloatVector(fieldEmbedding, m.dim, vectors),
	)
	if err != nil {
		return backend.Transient("index upsert", err)
	}

	m.log.WithPayload(map[string]interface{}{"chunks": len(chunks)}).Debug("upserted chunks into milvus")
	return nil
}

// Query returns the topK chunks closest to the query vector.
func (m *MilvusIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	count, err := m.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrEmpty
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{fieldID, fieldDocumentID, fieldSourceName, fieldSequenceIndex, fieldText, fieldContentHash}

	results, err := m.client.Search(
		ctx, m.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.L2, topK, sp,
	)
	if err != nil {
		return nil, backend.Transient("index search", err)
	}

	var matches []Match
	for _, res := range results {
		ids, err1 := varcharData(res.Fields, fieldID)
		docIDs, err2 := varcharData(res.Fields, fieldDocumentID)
		sources, err3 := varcharData(res.Fields, fieldSourceName)
		texts, err4 := varcharData(res.Fields, fieldText)
		hashes, err5 := varcharData(res.Fields, fieldContentHash)
		seqs, err6 := int64Data(res.Fields, fieldSequenceIndex)
		for _, colErr := range []error{err1, err2, err3, err4, err5, err6} {
			if colErr != nil {
				return nil, fmt.Errorf("malformed search result: %w", colErr)
			}
		}

		for i := 0; i < res.ResultCount; i++ {
			matches = append(matches, Match{
				Chunk: models.Chunk{
					ID:            ids[i],
					DocumentID:    docIDs[i],
					SourceName:    sources[i],
					SequenceIndex: int(seqs[i]),
					Text:          texts[i],
					ContentHash:   hashes[i],
				},
				Score: res.Scores[i],
			})
		}
	}

	return matches, nil
}

// Flush persists buffered upserts so they become visible to search. The
// pipeline calls this between its indexing and retrieval phases.
func (m *MilvusIndex) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.collection, false); err != nil {
		return backend.Transient("index flush", err)
	}
	return nil
}

// Count returns the number of rows in the collection.
func (m *MilvusIndex) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.collection)
	if err != nil {
		return 0, backend.Transient("index stats", err)
	}
	raw, ok := stats["row_count"]
	if !ok {
		return 0, fmt.Errorf("milvus statistics for '%s' are missing row_count", m.collection)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed row_count '%s': %w", raw, err)
	}
	return count, nil
}

func varcharData(fields []entity.Column, name string) ([]string, error) {
	for _, f := range fields {
		if f.Name() == name {
			col, ok := f.(*entity.ColumnVarChar)
			if !ok {
				return nil, fmt.Errorf("field %s has unexpected type", name)
			}
			return col.Data(), nil
		}
	}
	return nil, fmt.Errorf("field %s is missing from search result", name)
}

func int64Data(fields []entity.Column, name string) ([]int64, error) {
	for _, f := range fields {
		if f.Name() == name {
			col, ok := f.(*entity.ColumnInt64)
			if !ok {
				return nil, fmt.Errorf("field %s has unexpected type", name)
			}
			return col.Data(), nil
		}
	}
	return nil, fmt.Errorf("field %s is missing from search result", name)
}

var _ Index = (*MilvusIndex)(nil)
