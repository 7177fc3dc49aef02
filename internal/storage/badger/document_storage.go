package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// ErrDocumentNotFound is returned when a registry lookup misses
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Debug().
		Str("doc_id", doc.ID).
		Str("name", doc.Name).
		Msg("Document registered")
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	if err := s.db.Store().Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetDocumentBySHA256 returns the most recent upload of the given content
func (s *DocumentStorage) GetDocumentBySHA256(ctx context.Context, sha string) (*models.DocumentRecord, error) {
	var docs []models.DocumentRecord
	query := badgerhold.Where("SHA256").Eq(sha).SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: sha256 %s", ErrDocumentNotFound, sha)
	}
	return &docs[0], nil
}

// ListDocuments returns registry entries newest first; limit <= 0 returns all
func (s *DocumentStorage) ListDocuments(ctx context.Context, limit int) ([]models.DocumentRecord, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.DocumentRecord
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
