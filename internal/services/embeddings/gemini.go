package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/llm"
)

// GeminiEmbedder embeds text with a Gemini embedding model at a fixed output dimensionality
type GeminiEmbedder struct {
	factory   *llm.ProviderFactory
	audit     llm.AuditLogger
	model     string
	dimension int
	logger    arbor.ILogger
}

var _ interfaces.Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates an embedder that shares the factory's Gemini client and retry policy
func NewGeminiEmbedder(factory *llm.ProviderFactory, audit llm.AuditLogger, model string, dimension int, logger arbor.ILogger) *GeminiEmbedder {
	if audit == nil {
		audit = llm.NewNullAuditLogger()
	}
	return &GeminiEmbedder{
		factory:   factory,
		audit:     audit,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}
}

// Model identifies the embedding space, including the dimensionality
func (e *GeminiEmbedder) Model() string {
	return fmt.Sprintf("gemini/%s@%d", e.model, e.dimension)
}

// Embed generates an embedding vector for text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	client, err := e.factory.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	outputDim := int32(e.dimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	start := time.Now()
	var embedding []float32
	err = e.factory.CallWithRetry(ctx, "Gemini embedding", false, func(ctx context.Context) error {
		result, callErr := client.Models.EmbedContent(ctx, e.model, contents, embeddingConfig)
		if callErr != nil {
			return callErr
		}
		if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
			return fmt.Errorf("no embedding returned from API")
		}
		embedding = result.Embeddings[0].Values
		return nil
	})

	e.audit.Log(ctx, llm.AuditCall{
		Operation: models.AuditOpEmbed,
		Provider:  string(llm.ProviderGemini),
		Model:     e.model,
		Duration:  time.Since(start),
		Err:       err,
	})

	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if len(embedding) != e.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(embedding))
	}

	return embedding, nil
}
