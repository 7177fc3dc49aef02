package llm

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// AuditCall describes one completed model call
type AuditCall struct {
	Operation  models.AuditOperation
	Provider   string
	Model      string
	Duration   time.Duration
	Err        error
	Prompt     string
	Response   string
	ImageBytes int
}

// AuditLogger defines the interface for LLM audit logging
type AuditLogger interface {
	Log(ctx context.Context, call AuditCall)
	GetLogs(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ExportToJSON(ctx context.Context, w io.Writer) error
}

// StorageAuditLogger writes audit entries to AuditStorage
type StorageAuditLogger struct {
	storage    interfaces.AuditStorage
	logPrompts bool
	logger     arbor.ILogger
}

// NewStorageAuditLogger creates an audit logger over the given storage
func NewStorageAuditLogger(storage interfaces.AuditStorage, logPrompts bool, logger arbor.ILogger) *StorageAuditLogger {
	return &StorageAuditLogger{
		storage:    storage,
		logPrompts: logPrompts,
		logger:     logger,
	}
}

// Log records a call. Storage failures are logged, never returned.
func (l *StorageAuditLogger) Log(ctx context.Context, call AuditCall) {
	entry := &models.AuditEntry{
		ID:         common.NewAuditID(),
		Operation:  call.Operation,
		Provider:   call.Provider,
		Model:      call.Model,
		Success:    call.Err == nil,
		DurationMs: call.Duration.Milliseconds(),
		ImageBytes: call.ImageBytes,
		CreatedAt:  time.Now(),
	}
	if call.Err != nil {
		entry.Error = call.Err.Error()
	}
	if l.logPrompts {
		entry.Prompt = call.Prompt
		entry.Response = call.Response
	}

	// Audit writes outlive a cancelled request
	if err := l.storage.SaveEntry(context.WithoutCancel(ctx), entry); err != nil {
		l.logger.Warn().Err(err).Str("operation", string(call.Operation)).Msg("Failed to write audit entry")
	}
}

// GetLogs returns the most recent entries, newest first
func (l *StorageAuditLogger) GetLogs(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return l.storage.ListEntries(ctx, limit)
}

// ExportToJSON writes all entries as a JSON array
func (l *StorageAuditLogger) ExportToJSON(ctx context.Context, w io.Writer) error {
	entries, err := l.storage.ListEntries(ctx, 0)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// NullAuditLogger discards everything
type NullAuditLogger struct{}

// NewNullAuditLogger creates an audit logger that records nothing
func NewNullAuditLogger() *NullAuditLogger {
	return &NullAuditLogger{}
}

func (l *NullAuditLogger) Log(ctx context.Context, call AuditCall) {}

func (l *NullAuditLogger) GetLogs(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

func (l *NullAuditLogger) ExportToJSON(ctx context.Context, w io.Writer) error {
	_, err := w.Write([]byte("[]\n"))
	return err
}
