package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// ExportSchemaVersion is written to the export header.
const ExportSchemaVersion = "1.0"

// Export line types.
const (
	LineRecord  = "record"
	LineCatalog = "catalog"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.nutrilog/exports/nutrilog-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Records    int    `json:"records"`
	Catalog    int    `json:"catalog"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	NutrilogExport bool   `json:"_nutrilog_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
}

// ExportLine is every line after the header: one raw record or one catalog entry.
type ExportLine struct {
	Type    string              `json:"type"`
	Record  *entry.Record       `json:"record,omitempty"`
	Catalog *entry.CatalogEntry `json:"catalog,omitempty"`
}

// Export writes every stored record and catalog entry to a JSONL file.
// Records are written verbatim, malformed dates included.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := nowFunc()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("nutrilog-%s.jsonl", now.Format("2006-01-02T150405")))
	}

	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to a temp file, then rename, so a failed export leaves any existing file intact
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	if err := enc.Encode(ExportHeader{
		NutrilogExport: true,
		SchemaVersion:  ExportSchemaVersion,
		ExportedAt:     exportedAt,
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	catalog, err := db.ListCatalog(ctx, database)
	if err != nil {
		return nil, err
	}
	for i := range catalog {
		if err := enc.Encode(ExportLine{Type: LineCatalog, Catalog: &catalog[i]}); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	rows, err := db.StreamRecords(ctx, database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		r, err := db.ScanRecordFromRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(ExportLine{Type: LineRecord, Record: r}); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if isSymlink(exportPath) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}

	// On Windows os.Rename fails when the destination exists; keep the old file
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Records:    count,
		Catalog:    len(catalog),
		ExportedAt: exportedAt,
	}, nil
}
