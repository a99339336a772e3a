package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// ImportMode controls what happens when an imported record id already exists.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any problem; nothing is imported
	ImportModeReplace ImportMode = "replace" // overwrite the stored record
	ImportModeSkip    ImportMode = "skip"    // keep the stored record
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
// Catalog entries are always upserted.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Catalog  int           `json:"catalog"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type parsedLine struct {
	line    int
	record  *entry.Record
	catalog *entry.CatalogEntry
}

// Import loads records and catalog entries from a JSONL export file.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	lines, parseErrors := parseExport(file)
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: parseErrors, Skipped: len(parseErrors)}

	updatedAt := nowFunc().Unix()
	for _, pl := range lines {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		if pl.catalog != nil {
			if err := db.UpsertCatalog(ctx, tx, *pl.catalog, updatedAt); err != nil {
				return nil, err
			}
			out.Catalog++
			continue
		}

		r := pl.record
		exists, err := db.RecordExists(ctx, tx, r.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := db.InsertRecord(ctx, tx, r); err != nil {
				return nil, err
			}
			out.Imported++
			continue
		}

		switch input.Mode {
		case ImportModeError:
			// Abort: the deferred rollback discards everything
			return &ImportOutput{Errors: []ImportError{{
				Line:    pl.line,
				ID:      r.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("record with id %q already exists", r.ID),
			}}}, nil
		case ImportModeReplace:
			if err := db.ReplaceRecord(ctx, tx, r); err != nil {
				return nil, err
			}
			out.Imported++
		case ImportModeSkip:
			out.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExport reads every line after the header. Bad lines become errors;
// the rest are returned in file order.
func parseExport(r io.Reader) ([]parsedLine, []ImportError) {
	var (
		lines []parsedLine
		errs  []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line struct {
			ExportLine
			NutrilogExport bool `json:"_nutrilog_export"`
		}
		if err := json.Unmarshal(raw, &line); err != nil {
			errs = append(errs, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if line.NutrilogExport {
			continue
		}

		switch line.Type {
		case LineCatalog:
			if line.Catalog == nil {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing catalog field"})
				continue
			}
			if err := line.Catalog.Validate(); err != nil {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: err.Error()})
				continue
			}
			lines = append(lines, parsedLine{line: lineNum, catalog: line.Catalog})

		case LineRecord:
			rec := line.Record
			if rec == nil || rec.ID == "" {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing id field"})
				continue
			}
			kind, err := entry.ParseKind(string(rec.Kind), "")
			if err != nil || kind == "" {
				errs = append(errs, ImportError{Line: lineNum, ID: rec.ID, Code: "INVALID_RECORD", Message: fmt.Sprintf("invalid kind %q", rec.Kind)})
				continue
			}
			rec.Kind = kind
			if !rec.Finite() {
				errs = append(errs, ImportError{Line: lineNum, ID: rec.ID, Code: "INVALID_RECORD", Message: "quantity and value_total must be finite numbers"})
				continue
			}
			if rec.CreatedAt == 0 {
				rec.CreatedAt = nowFunc().Unix()
			}
			lines = append(lines, parsedLine{line: lineNum, record: rec})

		default:
			errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: fmt.Sprintf("unknown line type %q", line.Type)})
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return lines, errs
}
