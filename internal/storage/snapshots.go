package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/models"
)

const (
	snapshotsFile = "snapshots.csv"
	totalsFile    = "totals.csv"
)

var (
	snapshotHeader = []string{"timestamp", "ticker", "current_price", "shares", "pl", "pl_pct"}
	totalsHeader   = []string{"timestamp", "total_value", "total_pl", "total_pl_pct"}
)

// FileSnapshotStore appends rows to two CSV logs: per-ticker snapshots and
// portfolio totals. Rows are never rewritten or deleted; retention is out of
// scope.
type FileSnapshotStore struct {
	snapshotsPath string
	totalsPath    string
	logger        *common.Logger
}

// NewSnapshotStore creates a FileSnapshotStore rooted at dir, writing the
// header row of each log that does not exist yet.
func NewSnapshotStore(logger *common.Logger, dir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &FileSnapshotStore{
		snapshotsPath: filepath.Join(dir, snapshotsFile),
		totalsPath:    filepath.Join(dir, totalsFile),
		logger:        logger,
	}

	if err := s.initLog(s.snapshotsPath, snapshotHeader); err != nil {
		return nil, err
	}
	if err := s.initLog(s.totalsPath, totalsHeader); err != nil {
		return nil, err
	}
	return s, nil
}

// initLog writes the header row when the log does not exist.
func (s *FileSnapshotStore) initLog(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return s.appendRow(path, header)
}

// appendRow appends one CSV row to a log.
func (s *FileSnapshotStore) appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// AppendSnapshot appends one per-ticker row.
func (s *FileSnapshotStore) AppendSnapshot(snap models.Snapshot) error {
	return s.appendRow(s.snapshotsPath, []string{
		snap.Timestamp.Format(time.RFC3339),
		snap.Ticker,
		snap.CurrentPrice.String(),
		snap.Shares.String(),
		snap.PL.String(),
		snap.PLPct.String(),
	})
}

// AppendTotals appends one portfolio-totals row.
func (s *FileSnapshotStore) AppendTotals(snap models.TotalsSnapshot) error {
	return s.appendRow(s.totalsPath, []string{
		snap.Timestamp.Format(time.RFC3339),
		snap.TotalValue.String(),
		snap.TotalPL.String(),
		snap.TotalPLPct.String(),
	})
}

// readRows reads all data rows of a log (header excluded). A missing log
// yields no rows.
func readRows(path string, columns int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = columns
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:] // drop header
	}
	return rows, nil
}

// ReadSnapshots returns the full ordered per-ticker history.
func (s *FileSnapshotStore) ReadSnapshots() ([]models.Snapshot, error) {
	rows, err := readRows(s.snapshotsPath, len(snapshotHeader))
	if err != nil {
		return nil, err
	}

	out := make([]models.Snapshot, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q in %s: %w", row[0], s.snapshotsPath, err)
		}
		values, err := parseDecimals(row[2:6])
		if err != nil {
			return nil, fmt.Errorf("bad row in %s: %w", s.snapshotsPath, err)
		}
		out = append(out, models.Snapshot{
			Timestamp:    ts,
			Ticker:       row[1],
			CurrentPrice: values[0],
			Shares:       values[1],
			PL:           values[2],
			PLPct:        values[3],
		})
	}
	return out, nil
}

// ReadTotals returns the full ordered totals history.
func (s *FileSnapshotStore) ReadTotals() ([]models.TotalsSnapshot, error) {
	rows, err := readRows(s.totalsPath, len(totalsHeader))
	if err != nil {
		return nil, err
	}

	out := make([]models.TotalsSnapshot, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q in %s: %w", row[0], s.totalsPath, err)
		}
		values, err := parseDecimals(row[1:4])
		if err != nil {
			return nil, fmt.Errorf("bad row in %s: %w", s.totalsPath, err)
		}
		out = append(out, models.TotalsSnapshot{
			Timestamp:  ts,
			TotalValue: values[0],
			TotalPL:    values[1],
			TotalPLPct: values[2],
		})
	}
	return out, nil
}

func parseDecimals(fields []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, field := range fields {
		d, err := decimal.NewFromString(field)
		if err != nil {
			return nil, fmt.Errorf("bad decimal %q: %w", field, err)
		}
		out[i] = d
	}
	return out, nil
}
