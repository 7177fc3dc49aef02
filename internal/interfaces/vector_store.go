package interfaces

import (
	"context"
)

// VectorEntry is a vector stored under the position of its record
type VectorEntry struct {
	Seq    int
	Vector []float32
}

// VectorHit is a search result: the record position and its cosine similarity to the query
type VectorHit struct {
	Seq   int
	Score float32
}

// VectorStore is a nearest-neighbour index over record positions.
// Search returns hits ordered by descending score with ties broken by ascending Seq.
type VectorStore interface {
	Add(ctx context.Context, entries []VectorEntry) error
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)
	Len() int
	Close() error
}

// VectorStoreFactory opens an empty store for one index build
type VectorStoreFactory func(ctx context.Context, namespace string, dimension int) (VectorStore, error)
