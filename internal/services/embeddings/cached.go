package embeddings

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// CachedEmbedder serves repeat texts from an EmbeddingCache keyed by the inner model.
// Cache failures degrade to a direct call.
type CachedEmbedder struct {
	inner  interfaces.Embedder
	cache  interfaces.EmbeddingCache
	logger arbor.ILogger
}

var _ interfaces.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with cache
func NewCachedEmbedder(inner interfaces.Embedder, cache interfaces.EmbeddingCache, logger arbor.ILogger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, logger: logger}
}

// Model is the inner embedder's model; the cache never changes the embedding space
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Embed returns the cached vector for text or computes and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.inner.Model()

	if vec, ok, err := c.cache.GetEmbedding(ctx, model, text); err != nil {
		c.logger.Warn().Err(err).Msg("Embedding cache read failed")
	} else if ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutEmbedding(ctx, model, text, vec); err != nil {
		c.logger.Warn().Err(err).Msg("Embedding cache write failed")
	}
	return vec, nil
}
