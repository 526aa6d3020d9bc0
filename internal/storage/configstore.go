// Package storage provides file-based persistence for portfolio state and
// the append-only snapshot logs.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/models"
)

const (
	portfolioFile = "portfolio.json"
	backupSuffix  = ".bak"
)

// FileConfigStore persists the portfolio as a single JSON document with
// backup-then-write semantics: the previous file is copied to a .bak sibling
// before the new state is written atomically (temp file + rename). A crash
// mid-write leaves either the old or the new complete file, never a hybrid.
type FileConfigStore struct {
	path   string
	logger *common.Logger
}

// NewConfigStore creates a FileConfigStore rooted at dir.
func NewConfigStore(logger *common.Logger, dir string) (*FileConfigStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileConfigStore{
		path:   filepath.Join(dir, portfolioFile),
		logger: logger,
	}, nil
}

// Path returns the portfolio file path.
func (s *FileConfigStore) Path() string { return s.path }

// BackupPath returns the backup file path.
func (s *FileConfigStore) BackupPath() string { return s.path + backupSuffix }

// Save backs up the current file (when one exists) and writes the new state.
// A failed backup aborts the save: overwriting the only good copy would risk
// data loss.
func (s *FileConfigStore) Save(portfolio *models.Portfolio) error {
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.BackupPath()); err != nil {
			return &models.PersistenceError{Op: "backup", Err: err}
		}
	}

	data, err := json.MarshalIndent(portfolio, "", "  ")
	if err != nil {
		return &models.PersistenceError{Op: "write", Err: fmt.Errorf("marshal: %w", err)}
	}
	data = append(data, '\n')

	// Atomic write: temp file in the same directory, then rename.
	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &models.PersistenceError{Op: "write", Err: err}
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return &models.PersistenceError{Op: "write", Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return &models.PersistenceError{Op: "write", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &models.PersistenceError{Op: "write", Err: err}
	}

	s.logger.Debug().Str("path", s.path).Msg("Portfolio saved")
	return nil
}

// Load reads the persisted portfolio. A missing file returns
// models.ErrNotFound; an unparseable file returns models.ErrCorruptData and
// is left untouched for the user to inspect.
func (s *FileConfigStore) Load() (*models.Portfolio, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var portfolio models.Portfolio
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrCorruptData, s.path, err)
	}
	return &portfolio, nil
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
