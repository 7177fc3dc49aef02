package badger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// EmbeddingCache implements interfaces.EmbeddingCache for Badger.
// Keys include the model so vectors from different spaces never mix.
type EmbeddingCache struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEmbeddingCache creates a new EmbeddingCache instance
func NewEmbeddingCache(db *BadgerDB, logger arbor.ILogger) interfaces.EmbeddingCache {
	return &EmbeddingCache{
		db:     db,
		logger: logger,
	}
}

// CacheKey is model + ":" + hex(sha256(text))
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) GetEmbedding(ctx context.Context, model, text string) ([]float32, bool, error) {
	var cached models.CachedEmbedding
	if err := c.db.Store().Get(CacheKey(model, text), &cached); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached embedding: %w", err)
	}
	return cached.Vector, true, nil
}

func (c *EmbeddingCache) PutEmbedding(ctx context.Context, model, text string, vector []float32) error {
	key := CacheKey(model, text)
	cached := &models.CachedEmbedding{
		Key:       key,
		Model:     model,
		Vector:    vector,
		CreatedAt: time.Now(),
	}
	if err := c.db.Store().Upsert(key, cached); err != nil {
		return fmt.Errorf("failed to cache embedding: %w", err)
	}
	return nil
}
