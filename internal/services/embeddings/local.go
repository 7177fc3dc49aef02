package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// LocalEmbedder hashes unigrams and bigrams into a fixed-size signed vector and
// L2-normalises it. Deterministic and offline; similar wording gives similar vectors.
type LocalEmbedder struct {
	dimension int
}

var _ interfaces.Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a hashing embedder of the given dimension
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &LocalEmbedder{dimension: dimension}
}

// Model identifies the embedding space
func (e *LocalEmbedder) Model() string {
	return fmt.Sprintf("local/hash-v1@%d", e.dimension)
}

// Embed returns the normalised hashed bag of terms for text
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		// symbols only: the whole string is the single term
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, fmt.Errorf("text is empty")
		}
		tokens = []string{trimmed}
	}

	vec := make([]float32, e.dimension)
	for i, tok := range tokens {
		e.add(vec, tok, 1.0)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (e *LocalEmbedder) add(vec []float32, term string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
