package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// MemoryIndex is an in-process Index used by tests and by runs against small
// corpora where a Milvus deployment is not worth operating. Search is a
// brute-force L2 scan, with ties broken by insertion order so results stay
// deterministic.
type MemoryIndex struct {
	mu    sync.RWMutex
	byID  map[string]models.Chunk
	order []string
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]models.Chunk)}
}

// Upsert stores the chunks, replacing entries with the same ID in place.
func (m *MemoryIndex) Upsert(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		if _, exists := m.byID[c.ID]; !exists {
			m.order = append(m.order, c.ID)
		}
		m.byID[c.ID] = c
	}
	return nil
}

// Query returns up to topK chunks closest to the query vector.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return nil, ErrEmpty
	}

	type scored struct {
		match Match
		pos   int
	}
	candidates := make([]scored, 0, len(m.order))
	for pos, id := range m.order {
		chunk := m.byID[id]
		candidates = append(candidates, scored{
			match: Match{Chunk: chunk, Score: l2Distance(vector, chunk.Vector)},
			pos:   pos,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score < candidates[j].match.Score
		}
		return candidates[i].pos < candidates[j].pos
	})

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}
	return matches, nil
}

// Count returns the number of stored chunks.
func (m *MemoryIndex) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.order)), nil
}

func l2Distance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	// Unmatched dimensions count in full, so vectors of the wrong
	// dimension sort behind every proper candidate.
	for i := n; i < len(a); i++ {
		sum += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}
	return float32(math.Sqrt(sum))
}

var _ Index = (*MemoryIndex)(nil)
