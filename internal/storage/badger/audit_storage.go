package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// AuditStorage implements the AuditStorage interface for Badger
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AuditStorage) SaveEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = common.NewAuditID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

// ListEntries returns entries newest first; limit <= 0 returns all
func (s *AuditStorage) ListEntries(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.AuditEntry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries created before cutoff and returns how many were removed
func (s *AuditStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("CreatedAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.AuditEntry{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.AuditEntry{}, query); err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}

	s.logger.Debug().
		Int("deleted", int(count)).
		Str("cutoff", cutoff.Format(time.RFC3339)).
		Msg("Audit entries pruned")

	return int(count), nil
}
