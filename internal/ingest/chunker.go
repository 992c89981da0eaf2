package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

const (
	// DefaultChunkTokens is the token budget per chunk.
	DefaultChunkTokens = 500
	// DefaultChunkOverlap is the token overlap between consecutive chunks,
	// so a fact straddling a boundary appears whole in at least one chunk.
	DefaultChunkOverlap = 50
)

// Chunker splits a document into bounded, ordered passages. Chunking is a
// pure function of the input text and the tokenizer: calling Chunk twice on
// the same document yields identical chunks with identical IDs.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	tokenizer    Tokenizer
}

// NewChunker creates a Chunker with the given token budget and overlap.
func NewChunker(chunkSize, chunkOverlap int, tokenizer Tokenizer) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, tokenizer: tokenizer}, nil
}

// Chunk splits the document's text by token count, preserving document order.
// An empty document yields zero chunks; a document within the budget yields
// exactly one.
func (c *Chunker) Chunk(doc models.Document) ([]models.Chunk, error) {
	if strings.TrimSpace(doc.RawText) == "" {
		return nil, nil
	}

	tokens := c.tokenizer.Encode(doc.RawText)
	if len(tokens) == 0 {
		return nil, nil
	}

	var chunks []models.Chunk
	step := c.chunkSize - c.chunkOverlap

	for start, seq := 0, 0; start < len(tokens); start, seq = start+step, seq+1 {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		text := c.tokenizer.Decode(tokens[start:end])
		hash := ContentHash(text)
		chunks = append(chunks, models.Chunk{
			ID:            ChunkID(doc.SourceName, seq, hash),
			DocumentID:    doc.ID,
			SourceName:    doc.SourceName,
			SequenceIndex: seq,
			Text:          text,
			TokenCount:    end - start,
			ContentHash:   hash,
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// ContentHash returns the hex SHA-256 of the whitespace-normalized text.
// Normalization keeps the hash stable across cosmetic extraction differences.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the chunk identity from its source, position and content,
// so re-ingesting an unchanged document reproduces the same IDs while a
// changed document produces new ones.
func ChunkID(sourceName string, sequenceIndex int, contentHash string) string {
	return fmt.Sprintf("%s_chunk_%d_%s", sourceName, sequenceIndex, contentHash[:12])
}
