package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nutrilog/internal/entry"
)

// Store exposes the SQLite database as a record source and catalog source.
type Store struct {
	DB *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ListRecords implements ops.RecordSource.
func (s *Store) ListRecords(ctx context.Context, kind entry.Kind, filter entry.RecordFilter) ([]entry.Record, error) {
	return ListRecords(ctx, s.DB, kind, filter)
}

// GetCatalogEntry implements ops.CatalogSource.
func (s *Store) GetCatalogEntry(ctx context.Context, itemName string) (*entry.CatalogEntry, error) {
	return GetCatalog(ctx, s.DB, itemName)
}
