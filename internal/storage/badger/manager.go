package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db       *BadgerDB
	chunk    interfaces.ChunkStorage
	manifest interfaces.ManifestStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		chunk:    NewChunkStorage(db, logger),
		manifest: NewManifestStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ChunkStorage returns the chunk storage interface.
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// ManifestStorage returns the manifest storage interface.
func (m *Manager) ManifestStorage() interfaces.ManifestStorage {
	return m.manifest
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
