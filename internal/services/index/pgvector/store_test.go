package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// Runs only against a real database: MMRAG_TEST_PG_DSN=postgres://... go test ./...
func TestStore_SearchOrdering(t *testing.T) {
	dsn := os.Getenv("MMRAG_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MMRAG_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	logger := arbor.NewLogger()

	pool, err := Connect(ctx, dsn, "mmrag_vectors_test", logger)
	require.NoError(t, err)
	defer pool.Close()

	store, err := NewFactory(pool, "mmrag_vectors_test", logger)(ctx, "ses_test", 2)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Add(ctx, []interfaces.VectorEntry{
		{Seq: 0, Vector: []float32{0, 1}},
		{Seq: 1, Vector: []float32{1, 0}},
		{Seq: 2, Vector: []float32{2, 0}},
	}))
	assert.Equal(t, 3, store.Len())

	hits, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Seq)
	assert.Equal(t, 2, hits[1].Seq)
}

func TestConnect_Validation(t *testing.T) {
	logger := arbor.NewLogger()

	_, err := Connect(context.Background(), "", "t", logger)
	assert.Error(t, err)

	_, err = Connect(context.Background(), "postgres://localhost/x", "bad;name", logger)
	assert.Error(t, err)
}
