package badger

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	audit     interfaces.AuditStorage
	cache     interfaces.EmbeddingCache
	documents interfaces.DocumentStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		audit:     NewAuditStorage(db, logger),
		cache:     NewEmbeddingCache(db, logger),
		documents: NewDocumentStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// AuditStorage returns the LLM audit log
func (m *Manager) AuditStorage() interfaces.AuditStorage {
	return m.audit
}

// EmbeddingCache returns the embedding cache
func (m *Manager) EmbeddingCache() interfaces.EmbeddingCache {
	return m.cache
}

// DocumentStorage returns the document registry
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.documents
}

// gcDiscardRatio is the share of stale data a value log file needs before it is rewritten
const gcDiscardRatio = 0.5

// Compact runs value log GC until nothing is left to rewrite or ctx ends
func (m *Manager) Compact(ctx context.Context) error {
	rewritten := 0
	for ctx.Err() == nil {
		ok, err := m.db.RunGC(gcDiscardRatio)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rewritten++
	}
	m.logger.Debug().Int("rewritten", rewritten).Msg("Badger value log GC complete")
	return ctx.Err()
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
