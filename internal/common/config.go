package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	LLM       LLMConfig       `toml:"llm"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Claude    ClaudeConfig    `toml:"claude"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Index     IndexConfig     `toml:"index"`
	Storage   StorageConfig   `toml:"storage"`
	Audit     AuditConfig     `toml:"audit"`
	Prompts   PromptsConfig   `toml:"prompts"`
}

type ServerConfig struct {
	Port        int    `toml:"port"`
	Host        string `toml:"host"`
	MaxUploadMB int    `toml:"max_upload_mb"` // Upper bound on an uploaded PDF
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for console/file writers (default: "15:04:05")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects providers and bounds every completion call
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Text completion provider: "gemini" or "claude"
	VisionProvider  LLMProvider `toml:"vision_provider"`  // Vision completion provider (default: same as default_provider)
	Timeout         string      `toml:"timeout"`          // Per-call timeout as duration string (default: "2m")
	RateLimit       string      `toml:"rate_limit"`       // Minimum spacing between calls (default: "1s")
}

// GeminiConfig contains Google Gemini API configuration for chat, vision and embeddings
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`           // Text completion model
	VisionModel    string  `toml:"vision_model"`    // Image understanding model (default: same as model)
	EmbedModel     string  `toml:"embed_model"`     // Embedding model
	EmbedDimension int     `toml:"embed_dimension"` // Output dimensionality requested from the embedding model
	Temperature    float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// EmbeddingConfig selects the embedding function used to build and query the index
type EmbeddingConfig struct {
	Provider  string `toml:"provider"`  // "gemini" or "local"
	Dimension int    `toml:"dimension"` // Vector size for the local provider
}

// IngestConfig controls chunking and image analysis during ingestion
type IngestConfig struct {
	ChunkSize         int `toml:"chunk_size"`
	ChunkOverlap      int `toml:"chunk_overlap"`
	VisionConcurrency int `toml:"vision_concurrency"` // 1 = sequential
	MinPixels         int `toml:"min_pixels"`
	MaxPixels         int `toml:"max_pixels"`
}

type RetrievalConfig struct {
	TopK int `toml:"top_k"`
}

// IndexConfig selects the vector store backend
type IndexConfig struct {
	Backend string `toml:"backend"`  // "memory" or "pgvector"
	PGDSN   string `toml:"pg_dsn"`   // Postgres connection string for the pgvector backend
	PGTable string `toml:"pg_table"` // Table holding session vectors
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path, empty disables persistence
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
	GCSchedule     string `toml:"gc_schedule"`      // Cron schedule (seconds first) for value log GC, empty disables
}

// AuditConfig controls the LLM call audit log
type AuditConfig struct {
	Enabled       bool   `toml:"enabled"`
	LogPrompts    bool   `toml:"log_prompts"`    // Store prompt and response text with each entry
	Retention     string `toml:"retention"`      // Entries older than this are pruned (default: "168h")
	PruneSchedule string `toml:"prune_schedule"` // Cron schedule with seconds field (default: hourly)
}

// PromptsConfig points at an optional YAML file overriding the built-in prompts
type PromptsConfig struct {
	File string `toml:"file"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8085,
			Host:        "localhost",
			MaxUploadMB: 50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			Timeout:         "2m",
			RateLimit:       "1s",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			Temperature:    0.0,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   4096,
			Temperature: 0.0,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Dimension: 384,
		},
		Ingest: IngestConfig{
			ChunkSize:         1000,
			ChunkOverlap:      100,
			VisionConcurrency: 1,
			MinPixels:         20_000,
			MaxPixels:         30_000_000,
		},
		Retrieval: RetrievalConfig{
			TopK: 12,
		},
		Index: IndexConfig{
			Backend: "memory",
			PGTable: "mmrag_vectors",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCSchedule: "0 30 */6 * * *",
			},
		},
		Audit: AuditConfig{
			Enabled:       true,
			LogPrompts:    false,
			Retention:     "168h",
			PruneSchedule: "0 0 * * * *",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies MMRAG_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("MMRAG_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MMRAG_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if maxUpload := os.Getenv("MMRAG_SERVER_MAX_UPLOAD_MB"); maxUpload != "" {
		if m, err := strconv.Atoi(maxUpload); err == nil {
			config.Server.MaxUploadMB = m
		}
	}

	// Logging configuration
	if level := os.Getenv("MMRAG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MMRAG_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM configuration
	if provider := os.Getenv("MMRAG_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if provider := os.Getenv("MMRAG_LLM_VISION_PROVIDER"); provider != "" {
		config.LLM.VisionProvider = LLMProvider(provider)
	}
	if timeout := os.Getenv("MMRAG_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}
	if rateLimit := os.Getenv("MMRAG_LLM_RATE_LIMIT"); rateLimit != "" {
		config.LLM.RateLimit = rateLimit
	}

	// Gemini configuration
	if apiKey := os.Getenv("MMRAG_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("MMRAG_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("MMRAG_GEMINI_VISION_MODEL"); model != "" {
		config.Gemini.VisionModel = model
	}
	if model := os.Getenv("MMRAG_GEMINI_EMBED_MODEL"); model != "" {
		config.Gemini.EmbedModel = model
	}
	if temperature := os.Getenv("MMRAG_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("MMRAG_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // MMRAG_ prefix takes priority
	}
	if model := os.Getenv("MMRAG_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("MMRAG_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// Embedding configuration
	if provider := os.Getenv("MMRAG_EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if dim := os.Getenv("MMRAG_EMBEDDING_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Embedding.Dimension = d
		}
	}

	// Ingest configuration
	if size := os.Getenv("MMRAG_INGEST_CHUNK_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Ingest.ChunkSize = s
		}
	}
	if overlap := os.Getenv("MMRAG_INGEST_CHUNK_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Ingest.ChunkOverlap = o
		}
	}
	if concurrency := os.Getenv("MMRAG_INGEST_VISION_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Ingest.VisionConcurrency = c
		}
	}

	// Retrieval configuration
	if topK := os.Getenv("MMRAG_RETRIEVAL_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = k
		}
	}

	// Index configuration
	if backend := os.Getenv("MMRAG_INDEX_BACKEND"); backend != "" {
		config.Index.Backend = backend
	}
	if dsn := os.Getenv("MMRAG_INDEX_PG_DSN"); dsn != "" {
		config.Index.PGDSN = dsn
	}

	// Storage configuration
	if badgerPath := os.Getenv("MMRAG_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Audit configuration
	if enabled := os.Getenv("MMRAG_AUDIT_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Audit.Enabled = e
		}
	}
	if logPrompts := os.Getenv("MMRAG_AUDIT_LOG_PROMPTS"); logPrompts != "" {
		if lp, err := strconv.ParseBool(logPrompts); err == nil {
			config.Audit.LogPrompts = lp
		}
	}

	// Prompts configuration
	if file := os.Getenv("MMRAG_PROMPTS_FILE"); file != "" {
		config.Prompts.File = file
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the values that would otherwise fail deep inside a request
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.MinPixels < 0 || c.Ingest.MaxPixels <= c.Ingest.MinPixels {
		return fmt.Errorf("ingest pixel bounds invalid: min=%d max=%d", c.Ingest.MinPixels, c.Ingest.MaxPixels)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.default_provider must be gemini or claude, got %q", c.LLM.DefaultProvider)
	}
	switch c.Embedding.Provider {
	case "gemini", "local":
	default:
		return fmt.Errorf("embedding.provider must be gemini or local, got %q", c.Embedding.Provider)
	}
	switch c.Index.Backend {
	case "memory":
	case "pgvector":
		if c.Index.PGDSN == "" {
			return fmt.Errorf("index.pg_dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("index.backend must be memory or pgvector, got %q", c.Index.Backend)
	}
	if c.Storage.Badger.GCSchedule != "" {
		if err := ValidateSchedule(c.Storage.Badger.GCSchedule); err != nil {
			return fmt.Errorf("storage.badger.gc_schedule: %w", err)
		}
	}
	if c.Audit.Enabled && c.Audit.PruneSchedule != "" {
		if err := ValidateSchedule(c.Audit.PruneSchedule); err != nil {
			return fmt.Errorf("audit.prune_schedule: %w", err)
		}
	}
	return nil
}

// VisionProvider returns the provider used for image analysis
func (c *Config) VisionProvider() LLMProvider {
	if c.LLM.VisionProvider != "" {
		return c.LLM.VisionProvider
	}
	return c.LLM.DefaultProvider
}

// LLMTimeout parses llm.timeout, falling back to two minutes
func (c *Config) LLMTimeout() time.Duration {
	return parseDurationOr(c.LLM.Timeout, 2*time.Minute)
}

// LLMRateLimit parses llm.rate_limit; zero disables limiting
func (c *Config) LLMRateLimit() time.Duration {
	return parseDurationOr(c.LLM.RateLimit, 0)
}

// AuditRetention parses audit.retention, falling back to one week
func (c *Config) AuditRetention() time.Duration {
	return parseDurationOr(c.Audit.Retention, 168*time.Hour)
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → config fallback → error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"MMRAG_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"claude_api_key": {"MMRAG_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ValidateSchedule validates a six-field cron expression (seconds first)
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
