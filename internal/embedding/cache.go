package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// cacheTTL bounds how long cached vectors live. Metric descriptions are
// re-embedded on every run, so even a short TTL saves most of the calls.
const cacheTTL = 30 * 24 * time.Hour

// CachedEmbedding wraps another Embedding with a Redis read-through cache.
// Cache failures are ignored: a broken cache degrades to the inner backend,
// and nothing is written for a text whose embedding call failed.
type CachedEmbedding struct {
	inner     Embedding
	rdb       *redis.Client
	namespace string // provider/model discriminator baked into every key
}

// NewCachedEmbedding wraps inner with a Redis cache. namespace must identify
// the provider and model so vectors from different models never collide.
func NewCachedEmbedding(inner Embedding, rdb *redis.Client, namespace string) *CachedEmbedding {
	return &CachedEmbedding{inner: inner, rdb: rdb, namespace: namespace}
}

func (c *CachedEmbedding) key(text string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text, or delegates to the inner
// backend and caches the result.
func (c *CachedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.lookup(ctx, text); ok {
		return vector, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, text, vector)
	return vector, nil
}

// EmbedBatch resolves each text from the cache where possible and embeds the
// remaining texts in a single inner call.
func (c *CachedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vector, ok := c.lookup(ctx, text); ok {
			results[i] = vector
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vectors, err := c.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vector := range vectors {
			results[missingIdx[j]] = vector
			c.store(ctx, missing[j], vector)
		}
	}

	return results, nil
}

func (c *CachedEmbedding) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (c *CachedEmbedding) store(ctx context.Context, text string, vector []float32) {
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.key(text), raw, cacheTTL)
}

var _ Embedding = (*CachedEmbedding)(nil)
