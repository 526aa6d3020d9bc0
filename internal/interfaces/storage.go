package interfaces

import (
	"github.com/bgunnison/folio/internal/models"
)

// ConfigStore persists the portfolio with backup-then-write semantics.
type ConfigStore interface {
	// Save backs up the existing file (when present) and then writes the new
	// state as a single complete file. A failed backup aborts the save with a
	// PersistenceError.
	Save(portfolio *models.Portfolio) error

	// Load reads the persisted portfolio. Returns models.ErrNotFound when no
	// file exists and models.ErrCorruptData when the file cannot be parsed.
	Load() (*models.Portfolio, error)
}

// SnapshotStore appends rows to the two historical logs. Append is the only
// mutation; rows are never rewritten or deleted.
type SnapshotStore interface {
	AppendSnapshot(snap models.Snapshot) error
	AppendTotals(snap models.TotalsSnapshot) error
	ReadSnapshots() ([]models.Snapshot, error)
	ReadTotals() ([]models.TotalsSnapshot, error)
}

// StorageManager bundles the storage areas under one data directory.
type StorageManager interface {
	ConfigStore() ConfigStore
	SnapshotStore() SnapshotStore
	DataPath() string
}
