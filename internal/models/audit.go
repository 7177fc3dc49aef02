package models

import (
	"time"
)

// AuditOperation names the kind of model call recorded
type AuditOperation string

const (
	AuditOpChat   AuditOperation = "chat"
	AuditOpVision AuditOperation = "vision"
	AuditOpEmbed  AuditOperation = "embed"
)

// AuditEntry records a single LLM or embedding call
type AuditEntry struct {
	ID         string         `json:"id" badgerhold:"key"`
	Operation  AuditOperation `json:"operation"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Prompt     string         `json:"prompt,omitempty"`
	Response   string         `json:"response,omitempty"`
	ImageBytes int            `json:"image_bytes,omitempty"`
	CreatedAt  time.Time      `json:"created_at" badgerhold:"index"`
}

// CachedEmbedding is a stored vector keyed by model and text hash
type CachedEmbedding struct {
	Key       string    `json:"key" badgerhold:"key"` // model + ":" + sha256(text)
	Model     string    `json:"model"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}
