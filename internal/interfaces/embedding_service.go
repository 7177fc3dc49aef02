package interfaces

import (
	"context"
)

// Embedder maps text to a vector. Every vector in an index, and every query
// against it, must come from the same Model().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding space, e.g. "gemini/gemini-embedding-001@768"
	Model() string
}
