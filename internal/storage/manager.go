package storage

import (
	"fmt"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/interfaces"
)

// Manager implements interfaces.StorageManager with the two file-backed
// stores sharing one data directory.
type Manager struct {
	config    *FileConfigStore
	snapshots *FileSnapshotStore
	path      string
	logger    *common.Logger
}

// NewManager creates the storage manager from config.
func NewManager(logger *common.Logger, config *common.StorageConfig) (*Manager, error) {
	configStore, err := NewConfigStore(logger, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create config store: %w", err)
	}

	snapshotStore, err := NewSnapshotStore(logger, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("Storage manager initialized")

	return &Manager{
		config:    configStore,
		snapshots: snapshotStore,
		path:      config.Path,
		logger:    logger,
	}, nil
}

func (m *Manager) ConfigStore() interfaces.ConfigStore {
	return m.config
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshots
}

func (m *Manager) DataPath() string {
	return m.path
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
