package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 20_000, cfg.Ingest.MinPixels)
	assert.Equal(t, 30_000_000, cfg.Ingest.MaxPixels)
	assert.Equal(t, 1, cfg.Ingest.VisionConcurrency)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[ingest]
chunk_size = 800
chunk_overlap = 80

[retrieval]
top_k = 6
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[retrieval]
top_k = 4

[llm]
default_provider = "claude"
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Ingest.ChunkSize)
	assert.Equal(t, 80, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.DefaultProvider)
	assert.Equal(t, LLMProviderClaude, cfg.VisionProvider())
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mmrag.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0644))

	t.Setenv("MMRAG_SERVER_PORT", "9100")
	t.Setenv("MMRAG_INGEST_CHUNK_SIZE", "500")
	t.Setenv("MMRAG_EMBEDDING_PROVIDER", "local")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[ingest\nchunk_size ="), 0644))
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }},
		{"overlap not below size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }},
		{"max below min pixels", func(c *Config) { c.Ingest.MaxPixels = 10 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "openai" }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "tfidf" }},
		{"pgvector without dsn", func(c *Config) { c.Index.Backend = "pgvector" }},
		{"bad prune schedule", func(c *Config) { c.Audit.PruneSchedule = "every hour" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8085, cfg.Server.Port)

	ApplyFlagOverrides(cfg, 7000, "0.0.0.0")
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("MMRAG_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	key, err := ResolveAPIKey("gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err = ResolveAPIKey("gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	t.Setenv("MMRAG_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err = ResolveAPIKey("claude_api_key", "")
	assert.Error(t, err)
}

func TestDurationAccessors(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 2*time.Minute, cfg.LLMTimeout())
	assert.Equal(t, time.Second, cfg.LLMRateLimit())
	assert.Equal(t, 168*time.Hour, cfg.AuditRetention())

	cfg.LLM.Timeout = "not-a-duration"
	assert.Equal(t, 2*time.Minute, cfg.LLMTimeout())
}
