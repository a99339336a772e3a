// Package pgstore reads log records and catalog entries from a Postgres
// database. It is read-only: writes always go to the local SQLite store.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// Connection pool defaults.
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 2
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultConnMaxIdleTime = 30 * time.Second
)

// Schema is the table layout pgstore expects. Tables are owned by whatever
// writes them; pgstore only uses it to seed integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS log_records (
  seq         BIGSERIAL PRIMARY KEY,
  id          TEXT NOT NULL UNIQUE,
  kind        TEXT NOT NULL,
  item_name   TEXT NOT NULL DEFAULT '',
  quantity    DOUBLE PRECISION NOT NULL DEFAULT 0,
  value_total DOUBLE PRECISION NOT NULL DEFAULT 0,
  date_text   TEXT NOT NULL,
  time_text   TEXT NOT NULL,
  created_at  BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS catalog (
  name_norm            TEXT PRIMARY KEY,
  item_name            TEXT NOT NULL,
  calories_per_100g    DOUBLE PRECISION,
  calories_per_portion DOUBLE PRECISION,
  updated_at           BIGINT NOT NULL DEFAULT 0
);
`

// ConnString builds a lib/pq key/value connection string. Empty fields are
// left out so the driver falls back to its own defaults (PGPASSWORD etc).
func ConnString(c config.PostgresConfig) string {
	var parts []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		parts = append(parts, key+"="+quote(value))
	}
	add("host", c.Host)
	if c.Port > 0 {
		add("port", fmt.Sprintf("%d", c.Port))
	}
	add("user", c.User)
	add("password", c.Password)
	add("dbname", c.DBName)
	add("sslmode", c.SSLMode)
	return strings.Join(parts, " ")
}

// quote wraps values containing spaces or quotes in single quotes.
func quote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Store is a read-only RecordSource and CatalogSource backed by Postgres.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres using cfg and verifies the connection with a ping.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to postgres record source",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DBName,
		"ssl_mode", cfg.SSLMode)

	return OpenDSN(ctx, ConnString(cfg), logger)
}

// OpenDSN connects using a raw DSN (URL or key/value form).
func OpenDSN(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	db.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("postgres ping failed", "error", err)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Debug("postgres record source ready",
		"max_open_conns", DefaultMaxOpenConns,
		"max_idle_conns", DefaultMaxIdleConns)
	return &Store{db: db, logger: logger}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListRecords returns every record of kind in insertion order, narrowed by filter.
func (s *Store) ListRecords(ctx context.Context, kind entry.Kind, filter entry.RecordFilter) ([]entry.Record, error) {
	query := `SELECT id, kind, item_name, quantity, value_total, date_text, time_text, created_at
		FROM log_records WHERE kind = $1`
	args := []any{string(kind)}

	if filter.ItemName != "" {
		args = append(args, filter.ItemName)
		query += fmt.Sprintf(" AND item_name = $%d", len(args))
	}
	if filter.DateText != "" {
		args = append(args, filter.DateText)
		query += fmt.Sprintf(" AND date_text = $%d", len(args))
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := make([]entry.Record, 0)
	for rows.Next() {
		var (
			r entry.Record
			k string
		)
		if err := rows.Scan(&r.ID, &k, &r.ItemName, &r.Quantity, &r.ValueTotal, &r.DateText, &r.TimeText, &r.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Kind = entry.Kind(k)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// GetCatalogEntry looks up itemName by its normalized form.
func (s *Store) GetCatalogEntry(ctx context.Context, itemName string) (*entry.CatalogEntry, error) {
	var (
		c          entry.CatalogEntry
		per100g    sql.NullFloat64
		perPortion sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT item_name, calories_per_100g, calories_per_portion
		FROM catalog WHERE name_norm = $1
	`, entry.NormalizeName(itemName)).Scan(&c.ItemName, &per100g, &perPortion)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(itemName)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if per100g.Valid {
		c.CaloriesPer100g = &per100g.Float64
	}
	if perPortion.Valid {
		c.CaloriesPerPortion = &perPortion.Float64
	}
	return &c, nil
}
