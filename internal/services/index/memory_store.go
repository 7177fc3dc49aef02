package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// MemoryStore is an exact cosine-similarity scan over vectors held in memory
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	entries   []interfaces.VectorEntry
	norms     []float64
}

// Compile-time interface assertion
var _ interfaces.VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store for vectors of the given dimension
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{dimension: dimension}
}

// NewMemoryStoreFactory returns a factory producing memory stores
func NewMemoryStoreFactory() interfaces.VectorStoreFactory {
	return func(ctx context.Context, namespace string, dimension int) (interfaces.VectorStore, error) {
		return NewMemoryStore(dimension), nil
	}
}

// Add appends entries. Vectors are copied.
func (s *MemoryStore) Add(ctx context.Context, entries []interfaces.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector for seq %d has dimension %d, want %d", e.Seq, len(e.Vector), s.dimension)
		}
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		s.entries = append(s.entries, interfaces.VectorEntry{Seq: e.Seq, Vector: vec})
		s.norms = append(s.norms, norm(vec))
	}
	return nil
}

// Search scores every entry against query and returns the best k,
// by descending score then ascending Seq
func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]interfaces.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	qNorm := norm(query)
	hits := make([]interfaces.VectorHit, len(s.entries))
	for i, e := range s.entries {
		var score float64
		if qNorm > 0 && s.norms[i] > 0 {
			score = dot(query, e.Vector) / (qNorm * s.norms[i])
		}
		hits[i] = interfaces.VectorHit{Seq: e.Seq, Score: float32(score)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases the vectors
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.norms = nil
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
