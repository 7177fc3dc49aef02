package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/storage/badger"
)

// NewStorageManager opens Badger storage. An empty path disables persistence
// and returns a nil manager; callers then run without cache, audit log or registry.
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	if config.Storage.Badger.Path == "" {
		logger.Info().Msg("Persistence disabled (storage.badger.path is empty)")
		return nil, nil
	}
	return badger.NewManager(logger, &config.Storage.Badger)
}
