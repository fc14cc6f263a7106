package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

const inventoryTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL UNIQUE,
  slug       TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`

var schemaSQL = fmt.Sprintf(inventoryTableSQL, CategoryLocations) +
	fmt.Sprintf(inventoryTableSQL, CategoryManufacturers) +
	fmt.Sprintf(inventoryTableSQL, CategoryCircuitTypes) +
	fmt.Sprintf(inventoryTableSQL, CategoryProviders) +
	fmt.Sprintf(inventoryTableSQL, CategoryRIRs) +
	fmt.Sprintf(inventoryTableSQL, CategoryClusterTypes) + `
CREATE TABLE IF NOT EXISTS device_types (
  id              TEXT PRIMARY KEY,
  manufacturer_id TEXT NOT NULL REFERENCES manufacturers(id),
  model           TEXT NOT NULL,
  slug            TEXT NOT NULL,
  part_number     TEXT,
  u_height        REAL NOT NULL DEFAULT 1,
  is_full_depth   INTEGER NOT NULL DEFAULT 1 CHECK (is_full_depth IN (0,1)),
  comments        TEXT,
  created_at      TEXT NOT NULL,
  UNIQUE(manufacturer_id, model)
);
CREATE TABLE IF NOT EXISTS device_type_components (
  id             INTEGER PRIMARY KEY,
  device_type_id TEXT NOT NULL REFERENCES device_types(id) ON DELETE CASCADE,
  kind           TEXT NOT NULL,
  name           TEXT NOT NULL,
  type           TEXT
);
CREATE INDEX IF NOT EXISTS idx_components_device_type ON device_type_components(device_type_id);

CREATE TABLE IF NOT EXISTS manufacturer_imports (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL UNIQUE,
  repository TEXT NOT NULL,
  run_id     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS device_type_imports (
  id           TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  filename     TEXT NOT NULL UNIQUE,
  manufacturer TEXT NOT NULL,
  repository   TEXT NOT NULL,
  run_id       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_devicetype_imports_manufacturer ON device_type_imports(manufacturer);

CREATE TABLE IF NOT EXISTS status_entries (
  id           INTEGER PRIMARY KEY,
  name         TEXT NOT NULL UNIQUE,
  completed    INTEGER NOT NULL CHECK (completed IN (0,1)),
  ignored      INTEGER NOT NULL DEFAULT 0 CHECK (ignored IN (0,1)),
  target_model TEXT NOT NULL,
  list_link    TEXT NOT NULL,
  add_link     TEXT NOT NULL,
  wizard_link  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS git_repositories (
  slug              TEXT PRIMARY KEY,
  name              TEXT NOT NULL,
  remote_url        TEXT NOT NULL,
  branch            TEXT NOT NULL,
  provided_contents TEXT NOT NULL DEFAULT '',
  last_synced_at    TEXT
);

CREATE TABLE IF NOT EXISTS job_results (
  id           TEXT PRIMARY KEY,
  job_name     TEXT NOT NULL,
  username     TEXT NOT NULL,
  kwargs       TEXT NOT NULL DEFAULT '{}',
  status       TEXT NOT NULL CHECK (status IN ('pending','running','completed','failed')),
  error        TEXT,
  created_at   TEXT NOT NULL,
  started_at   TEXT,
  completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_job_results_status ON job_results(status, created_at);
`

// GetStats returns row counts for every table the service owns.
func (d *DB) GetStats(ctx context.Context) ([]TableStats, error) {
	tables := make([]string, 0, len(Categories)+4)
	for _, c := range Categories {
		tables = append(tables, string(c))
	}
	tables = append(tables, "manufacturer_imports", "device_type_imports", "status_entries", "job_results")

	stats := make([]TableStats, 0, len(tables))
	for _, t := range tables {
		var n int
		if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		stats = append(stats, TableStats{Table: t, Count: n})
	}
	return stats, nil
}

// Schema returns the CREATE statements of the tables and indexes, tables first.
func (d *DB) Schema(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT sql FROM sqlite_master
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		ORDER BY type DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, err
		}
		out = append(out, stmt+";")
	}
	return out, rows.Err()
}
