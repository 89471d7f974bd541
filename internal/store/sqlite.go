package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	queries
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// The pool is limited to one connection, so callers must not issue reads
// through the store while a WithTx callback is running.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{queries: queries{c: sqlConn{q: db}}, db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS vendors (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	evidence_url TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'discovered',
	aps_2024     REAL NOT NULL DEFAULT 0,
	aps_2025     REAL NOT NULL DEFAULT 0,
	aps_2026     REAL NOT NULL DEFAULT 0,
	is_verified  BOOLEAN NOT NULL DEFAULT 0,
	position     INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (task_id, name)
);

CREATE TABLE IF NOT EXISTS timelines (
	id                     TEXT PRIMARY KEY,
	vendor_id              TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	phase                  TEXT NOT NULL,
	year                   INTEGER NOT NULL,
	aps_score              REAL NOT NULL DEFAULT 0,
	capability_description TEXT NOT NULL DEFAULT '',
	source                 TEXT NOT NULL DEFAULT '',
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (vendor_id, phase, year)
);

CREATE TABLE IF NOT EXISTS subtasks (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	time_percent  REAL NOT NULL DEFAULT 0,
	importance    REAL NOT NULL DEFAULT 0,
	ai_applicable TEXT NOT NULL DEFAULT 'partially',
	weight        REAL NOT NULL DEFAULT 0,
	position      INTEGER NOT NULL DEFAULT 0,
	UNIQUE (task_id, name)
);

CREATE TABLE IF NOT EXISTS capability_mappings (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	vendor_id  TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	subtask_id TEXT NOT NULL REFERENCES subtasks(id) ON DELETE CASCADE,
	can_handle TEXT NOT NULL,
	aps_2024   REAL NOT NULL DEFAULT 0,
	aps_2025   REAL NOT NULL DEFAULT 0,
	aps_2026   REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (task_id, vendor_id, subtask_id)
);

CREATE TABLE IF NOT EXISTS final_analyses (
	id               TEXT PRIMARY KEY,
	task_id          TEXT NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
	best_vendor_id   TEXT REFERENCES vendors(id) ON DELETE SET NULL,
	best_vendor_name TEXT NOT NULL DEFAULT '',
	automation_2024  REAL NOT NULL DEFAULT 0,
	automation_2025  REAL NOT NULL DEFAULT 0,
	automation_2026  REAL NOT NULL DEFAULT 0,
	hrf_scores       TEXT NOT NULL DEFAULT '{}',
	composite_score  REAL NOT NULL DEFAULT 0,
	recommendations  TEXT NOT NULL DEFAULT '[]',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(txWriter{queries{c: sqlConn{q: tx}}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return eris.Wrapf(err, "sqlite: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit tx")
	}
	return nil
}
