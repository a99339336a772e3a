package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.NutriError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const recordColumns = `id, kind, item_name, quantity, value_total, date_text, time_text, created_at`

// InsertRecord stores a new log record.
func InsertRecord(ctx context.Context, db Execer, r *entry.Record) error {
	query := `
		INSERT INTO log_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		r.ID, string(r.Kind), r.ItemName, r.Quantity, r.ValueTotal,
		r.DateText, r.TimeText, r.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ReplaceRecord overwrites every field of the record with r.ID.
func ReplaceRecord(ctx context.Context, db Execer, r *entry.Record) error {
	query := `
		UPDATE log_records
		SET kind = ?, item_name = ?, quantity = ?, value_total = ?,
		    date_text = ?, time_text = ?, created_at = ?
		WHERE id = ?
	`
	result, err := db.ExecContext(ctx, query,
		string(r.Kind), r.ItemName, r.Quantity, r.ValueTotal,
		r.DateText, r.TimeText, r.CreatedAt, r.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(r.ID)
	}
	return nil
}

// RecordExists reports whether a record with id is stored.
func RecordExists(ctx context.Context, db Execer, id string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM log_records WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return exists, nil
}

// GetRecord retrieves a log record by its ULID.
func GetRecord(ctx context.Context, db Execer, id string) (*entry.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM log_records WHERE id = ?`

	r, err := scanRecord(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRecords returns every record of kind in insertion order, narrowed by filter.
func ListRecords(ctx context.Context, db *sql.DB, kind entry.Kind, filter entry.RecordFilter) ([]entry.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM log_records WHERE kind = ?`
	args := []any{string(kind)}

	if filter.ItemName != "" {
		query += " AND item_name = ?"
		args = append(args, filter.ItemName)
	}
	if filter.DateText != "" {
		query += " AND date_text = ?"
		args = append(args, filter.DateText)
	}
	query += " ORDER BY seq ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := make([]entry.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// CountRecords returns the number of stored records of kind.
func CountRecords(ctx context.Context, db *sql.DB, kind entry.Kind) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_records WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// DeleteRecord permanently removes a record.
func DeleteRecord(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM log_records WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// StreamRecords returns rows for every record, all kinds, in insertion order.
// The caller must close the rows and scan them with ScanRecordFromRows.
func StreamRecords(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+recordColumns+` FROM log_records ORDER BY seq ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanRecordFromRows scans the current row of a StreamRecords result.
func ScanRecordFromRows(rows *sql.Rows) (*entry.Record, error) {
	return scanRecord(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entry.Record, error) {
	var (
		r    entry.Record
		kind string
	)
	err := row.Scan(&r.ID, &kind, &r.ItemName, &r.Quantity, &r.ValueTotal, &r.DateText, &r.TimeText, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Kind = entry.Kind(kind)
	return &r, nil
}

// UpsertCatalog inserts or replaces the catalog entry for c.ItemName.
func UpsertCatalog(ctx context.Context, db Execer, c entry.CatalogEntry, updatedAt int64) error {
	query := `
		INSERT INTO catalog (name_norm, item_name, calories_per_100g, calories_per_portion, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name_norm) DO UPDATE SET
			item_name = excluded.item_name,
			calories_per_100g = excluded.calories_per_100g,
			calories_per_portion = excluded.calories_per_portion,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		entry.NormalizeName(c.ItemName), strings.TrimSpace(c.ItemName),
		toNullFloat(c.CaloriesPer100g), toNullFloat(c.CaloriesPerPortion), updatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetCatalog retrieves the catalog entry for itemName (matched normalized).
func GetCatalog(ctx context.Context, db *sql.DB, itemName string) (*entry.CatalogEntry, error) {
	query := `
		SELECT item_name, calories_per_100g, calories_per_portion
		FROM catalog WHERE name_norm = ?
	`
	c, err := scanCatalog(db.QueryRowContext(ctx, query, entry.NormalizeName(itemName)))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(itemName)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListCatalog returns every catalog entry ordered by name.
func ListCatalog(ctx context.Context, db *sql.DB) ([]entry.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT item_name, calories_per_100g, calories_per_portion
		FROM catalog ORDER BY name_norm ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := make([]entry.CatalogEntry, 0)
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

func scanCatalog(row rowScanner) (*entry.CatalogEntry, error) {
	var (
		c          entry.CatalogEntry
		per100g    sql.NullFloat64
		perPortion sql.NullFloat64
	)
	if err := row.Scan(&c.ItemName, &per100g, &perPortion); err != nil {
		return nil, err
	}
	c.CaloriesPer100g = fromNullFloat(per100g)
	c.CaloriesPerPortion = fromNullFloat(perPortion)
	return &c, nil
}

// toNullFloat converts a *float64 to sql.NullFloat64.
func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// fromNullFloat converts a sql.NullFloat64 to *float64.
func fromNullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
