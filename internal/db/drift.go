package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// MissingFile is a catalog row whose backing file is gone.
type MissingFile struct {
	ID       int64
	Name     string
	FilePath string
}

// DriftReport lists the disagreements between the catalog and the model directory.
type DriftReport struct {
	// Missing are rows pointing at files that no longer exist.
	Missing []MissingFile
	// Orphans are files in the model directory no row refers to.
	Orphans []string
}

// Clean reports whether the catalog and the directory agree.
func (r DriftReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0
}

// ScanDrift compares the glb_models table with the files under dir.
// It only reports; nothing is deleted or repaired.
func ScanDrift(ctx context.Context, db *sql.DB, dir string, log *zap.Logger) (DriftReport, error) {
	var report DriftReport

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return report, fmt.Errorf("resolve model dir: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, filePath FROM glb_models`)
	if err != nil {
		return report, fmt.Errorf("ScanDrift: %w", err)
	}
	defer rows.Close()

	referenced := make(map[string]bool)
	for rows.Next() {
		var m MissingFile
		if err := rows.Scan(&m.ID, &m.Name, &m.FilePath); err != nil {
			return report, fmt.Errorf("scan: %w", err)
		}
		referenced[filepath.Clean(m.FilePath)] = true
		if _, err := os.Stat(m.FilePath); errors.Is(err, fs.ErrNotExist) {
			log.Warn("catalog row without file",
				zap.Int64("id", m.ID),
				zap.String("path", m.FilePath),
			)
			report.Missing = append(report.Missing, m)
		}
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("rows: %w", err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return report, fmt.Errorf("read model dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(absDir, e.Name())
		if !referenced[path] {
			log.Warn("file without catalog row", zap.String("path", path))
			report.Orphans = append(report.Orphans, path)
		}
	}
	sort.Strings(report.Orphans)

	return report, nil
}
