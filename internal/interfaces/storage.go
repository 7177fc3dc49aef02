package interfaces

import (
	"context"
	"time"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// AuditStorage persists LLM call audit entries
type AuditStorage interface {
	SaveEntry(ctx context.Context, entry *models.AuditEntry) error
	ListEntries(ctx context.Context, limit int) ([]models.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// EmbeddingCache stores vectors by (model, text)
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, model, text string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, model, text string, vector []float32) error
}

// DocumentStorage is the registry of indexed uploads
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.DocumentRecord) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	GetDocumentBySHA256(ctx context.Context, sha string) (*models.DocumentRecord, error)
	ListDocuments(ctx context.Context, limit int) ([]models.DocumentRecord, error)
}

// StorageManager groups the persistent stores
type StorageManager interface {
	AuditStorage() AuditStorage
	EmbeddingCache() EmbeddingCache
	DocumentStorage() DocumentStorage
	Compact(ctx context.Context) error // reclaim space from deleted entries
	Close() error
}
