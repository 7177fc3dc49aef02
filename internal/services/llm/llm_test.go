package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New(`{"type":"rate_limit_error"}`)))
	assert.False(t, IsRateLimitError(errors.New("connection reset")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 12500*time.Millisecond, ExtractRetryDelay(err))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("boom")))
}

func TestCalculateBackoff(t *testing.T) {
	rc := NewDefaultRetryConfig()

	assert.Equal(t, DefaultInitialBackoff, rc.CalculateBackoff(0, 0))
	assert.Equal(t, 11*time.Second, rc.CalculateBackoff(0, 10*time.Second))
	assert.Equal(t, DefaultMaxBackoff, rc.CalculateBackoff(10, 0))
}

func TestCallWithRetry(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.RateLimit = ""
	f := NewProviderFactory(cfg, nil, arbor.NewLogger())
	f.SetRetryConfig(&RetryConfig{MaxRetries: 2})

	t.Run("succeeds after transient errors", func(t *testing.T) {
		calls := 0
		err := f.CallWithRetry(context.Background(), "test", true, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("503 unavailable")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := f.CallWithRetry(context.Background(), "test", false, func(ctx context.Context) error {
			calls++
			return errors.New("503 unavailable")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := f.CallWithRetry(context.Background(), "test", false, func(ctx context.Context) error {
			calls++
			return errors.New("401 authentication_error")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestConvertMessages(t *testing.T) {
	img := interfaces.ImagePart{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
	messages := []interfaces.Message{
		{Role: "system", Content: "be strict"},
		{Role: "user", Content: "describe", Images: []interfaces.ImagePart{img}},
		{Role: "assistant", Content: "ok"},
	}

	contents, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "be strict", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "model", contents[1].Role)

	claude, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "be strict", system)
	assert.Len(t, claude, 2)

	_, _, err = convertMessagesToGemini([]interfaces.Message{{Role: "system", Content: "x"}})
	assert.Error(t, err)
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"confidence": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"high", "low"},
			},
			"data_points": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
			},
		},
		"required": []interface{}{"confidence"},
	})
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, []string{"confidence"}, schema.Required)
	assert.Equal(t, []string{"high", "low"}, schema.Properties["confidence"].Enum)
	assert.NotNil(t, schema.Properties["data_points"].Items.Items)
}

func TestBind(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Gemini.VisionModel = "gemini-vision-x"
	f := NewProviderFactory(cfg, nil, arbor.NewLogger())

	assert.Equal(t, "gemini/"+cfg.Gemini.Model, f.TextService().Model())
	assert.Equal(t, "gemini/gemini-vision-x", f.VisionService().Model())
	assert.Equal(t, "claude/"+cfg.Claude.Model, f.Bind(ProviderClaude, "", models.AuditOpChat).Model())
}

type memoryAuditStorage struct {
	entries []models.AuditEntry
}

func (m *memoryAuditStorage) SaveEntry(ctx context.Context, e *models.AuditEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memoryAuditStorage) ListEntries(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return m.entries, nil
}

func (m *memoryAuditStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func TestStorageAuditLogger(t *testing.T) {
	store := &memoryAuditStorage{}
	audit := NewStorageAuditLogger(store, false, arbor.NewLogger())

	audit.Log(context.Background(), AuditCall{
		Operation: models.AuditOpVision,
		Provider:  "gemini",
		Model:     "m",
		Duration:  1500 * time.Millisecond,
		Err:       errors.New("boom"),
		Prompt:    "secret prompt",
	})

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.False(t, entry.Success)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, int64(1500), entry.DurationMs)
	assert.Empty(t, entry.Prompt)
	assert.NotEmpty(t, entry.ID)
}
