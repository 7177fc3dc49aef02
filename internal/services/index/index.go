// -----------------------------------------------------------------------
// Index Builder / Retriever - embeds records once, answers top-K queries
// -----------------------------------------------------------------------

package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// DefaultTopK is the number of neighbours fetched per query before any modality filter
const DefaultTopK = 12

var (
	// ErrEmptyCorpus is returned when there is nothing to index
	ErrEmptyCorpus = errors.New("no valid content extracted from PDF")

	// ErrEmbeddingMismatch is returned when a query would be embedded in a different space than the index
	ErrEmbeddingMismatch = errors.New("query embedder does not match the index")
)

// Index holds records and their vectors. It is read-only once built.
type Index struct {
	records   []models.ContentRecord
	store     interfaces.VectorStore
	model     string
	dimension int
	namespace string
	builtAt   time.Time
}

// Records returns a copy of the indexed records in insertion order
func (idx *Index) Records() []models.ContentRecord {
	out := make([]models.ContentRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Len returns the number of indexed records
func (idx *Index) Len() int { return len(idx.records) }

// Model identifies the embedding space the index was built in
func (idx *Index) Model() string { return idx.model }

// Dimension returns the vector size
func (idx *Index) Dimension() int { return idx.dimension }

// Namespace is the store namespace holding the vectors
func (idx *Index) Namespace() string { return idx.namespace }

// BuiltAt returns when the index was built
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Close releases the vector store
func (idx *Index) Close() error {
	if idx == nil || idx.store == nil {
		return nil
	}
	return idx.store.Close()
}

// Service builds indexes and retrieves from them with one embedder
type Service struct {
	embedder     interfaces.Embedder
	storeFactory interfaces.VectorStoreFactory
	topK         int
	logger       arbor.ILogger
}

// NewService creates an index service. A nil factory uses in-memory stores.
func NewService(embedder interfaces.Embedder, storeFactory interfaces.VectorStoreFactory, config *common.RetrievalConfig, logger arbor.ILogger) *Service {
	if storeFactory == nil {
		storeFactory = NewMemoryStoreFactory()
	}
	topK := DefaultTopK
	if config != nil && config.TopK > 0 {
		topK = config.TopK
	}
	return &Service{
		embedder:     embedder,
		storeFactory: storeFactory,
		topK:         topK,
		logger:       logger,
	}
}

// TopK returns the configured neighbour count
func (s *Service) TopK() int { return s.topK }

// Build embeds records into a fresh store
func (s *Service) Build(ctx context.Context, records []models.ContentRecord) (*Index, error) {
	return s.BuildNamespace(ctx, "", records)
}

// BuildNamespace is Build with an explicit store namespace; empty generates one.
// Records that break the indexing invariants (empty text, low confidence) are dropped.
func (s *Service) BuildNamespace(ctx context.Context, namespace string, records []models.ContentRecord) (*Index, error) {
	start := time.Now()

	kept := make([]models.ContentRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			s.logger.Warn().Err(err).Int("page", r.Page).Msg("Record excluded from index")
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyCorpus
	}

	if namespace == "" {
		namespace = uuid.New().String()
	}

	entries := make([]interfaces.VectorEntry, 0, len(kept))
	dimension := 0
	for seq, r := range kept {
		vec, err := s.embedder.Embed(ctx, r.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed record %d (page %d): %w", seq, r.Page, err)
		}
		if dimension == 0 {
			dimension = len(vec)
		} else if len(vec) != dimension {
			return nil, fmt.Errorf("record %d embedded with dimension %d, want %d", seq, len(vec), dimension)
		}
		entries = append(entries, interfaces.VectorEntry{Seq: seq, Vector: vec})
	}

	store, err := s.storeFactory(ctx, namespace, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	if err := store.Add(ctx, entries); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to add vectors: %w", err)
	}

	idx := &Index{
		records:   kept,
		store:     store,
		model:     s.embedder.Model(),
		dimension: dimension,
		namespace: namespace,
		builtAt:   time.Now(),
	}

	s.logger.Info().
		Int("records", len(kept)).
		Int("dropped", len(records)-len(kept)).
		Int("dimension", dimension).
		Str("model", idx.model).
		Dur("duration", time.Since(start)).
		Msg("Index built")

	return idx, nil
}

// Retrieve returns up to TopK records most similar to query. When modality is set the
// top-K results are filtered afterwards, so fewer than TopK (or none) may come back
// even if matching records exist further down the ranking.
func (s *Service) Retrieve(ctx context.Context, idx *Index, query string, modality *models.Modality) ([]models.ContentRecord, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is nil")
	}
	if model := s.embedder.Model(); model != idx.model {
		return nil, fmt.Errorf("%w: index %q, query %q", ErrEmbeddingMismatch, idx.model, model)
	}
	if strings.TrimSpace(query) == "" {
		return []models.ContentRecord{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := idx.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]models.ContentRecord, 0, len(hits))
	for _, hit := range hits {
		if hit.Seq < 0 || hit.Seq >= len(idx.records) {
			return nil, fmt.Errorf("vector store returned unknown record %d", hit.Seq)
		}
		record := idx.records[hit.Seq]
		if modality != nil && record.Modality != *modality {
			continue
		}
		results = append(results, record)
	}

	s.logger.Debug().
		Int("hits", len(hits)).
		Int("results", len(results)).
		Msg("Retrieved records")

	return results, nil
}

// FormatContext joins retrieved records into the grounding context given to the model
func FormatContext(records []models.ContentRecord) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n")
}
