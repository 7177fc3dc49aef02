package embeddings

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Revenue grew 10% in Q2.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Revenue grew 10% in Q2.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-5)
}

func TestLocalEmbedder_Similarity(t *testing.T) {
	e := NewLocalEmbedder(512)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "What was the revenue trend?")
	related, _ := e.Embed(ctx, "The revenue trend was rising in every quarter.")
	unrelated, _ := e.Embed(ctx, "Office locations include Berlin and Tokyo.")

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestLocalEmbedder_RejectsBlank(t *testing.T) {
	_, err := NewLocalEmbedder(64).Embed(context.Background(), " \n\t ")
	assert.Error(t, err)
}

func TestLocalEmbedder_SymbolsOnly(t *testing.T) {
	ctx := context.Background()
	e := NewLocalEmbedder(64)

	for _, text := range []string{"* * * — • —", "???", " ... "} {
		vec, err := e.Embed(ctx, text)
		require.NoError(t, err, text)
		require.Len(t, vec, 64)
		assert.InDelta(t, 1.0, cosine(vec, vec), 1e-5, "non-zero unit vector for %q", text)

		again, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, vec, again)
	}
}

func TestLocalEmbedder_ModelIncludesDimension(t *testing.T) {
	assert.NotEqual(t, NewLocalEmbedder(64).Model(), NewLocalEmbedder(128).Model())
}

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Model() string { return "counting" }

type mapCache struct {
	data    map[string][]float32
	failGet bool
}

func (m *mapCache) GetEmbedding(ctx context.Context, model, text string) ([]float32, bool, error) {
	if m.failGet {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[model+"|"+text]
	return v, ok, nil
}

func (m *mapCache) PutEmbedding(ctx context.Context, model, text string, vector []float32) error {
	m.data[model+"|"+text] = vector
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache, arbor.NewLogger())
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", e.Model())
	assert.Contains(t, cache.data, "counting|hello")

	cache.failGet = true
	_, err = e.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
