package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	queries
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{
		queries: queries{c: pgConn{q: pool}},
		pool:    pool,
		closeFn: closeFn,
	}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC);

CREATE TABLE IF NOT EXISTS vendors (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	evidence_url TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'discovered',
	aps_2024     DOUBLE PRECISION NOT NULL DEFAULT 0,
	aps_2025     DOUBLE PRECISION NOT NULL DEFAULT 0,
	aps_2026     DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_verified  BOOLEAN NOT NULL DEFAULT false,
	position     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (task_id, name)
);

CREATE TABLE IF NOT EXISTS timelines (
	id                     TEXT PRIMARY KEY,
	vendor_id              TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	phase                  TEXT NOT NULL,
	year                   INTEGER NOT NULL,
	aps_score              DOUBLE PRECISION NOT NULL DEFAULT 0,
	capability_description TEXT NOT NULL DEFAULT '',
	source                 TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (vendor_id, phase, year)
);

CREATE TABLE IF NOT EXISTS subtasks (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	time_percent  DOUBLE PRECISION NOT NULL DEFAULT 0,
	importance    DOUBLE PRECISION NOT NULL DEFAULT 0,
	ai_applicable TEXT NOT NULL DEFAULT 'partially',
	weight        DOUBLE PRECISION NOT NULL DEFAULT 0,
	position      INTEGER NOT NULL DEFAULT 0,
	UNIQUE (task_id, name)
);

CREATE TABLE IF NOT EXISTS capability_mappings (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	vendor_id  TEXT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	subtask_id TEXT NOT NULL REFERENCES subtasks(id) ON DELETE CASCADE,
	can_handle TEXT NOT NULL,
	aps_2024   DOUBLE PRECISION NOT NULL DEFAULT 0,
	aps_2025   DOUBLE PRECISION NOT NULL DEFAULT 0,
	aps_2026   DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (task_id, vendor_id, subtask_id)
);

CREATE TABLE IF NOT EXISTS final_analyses (
	id               TEXT PRIMARY KEY,
	task_id          TEXT NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
	best_vendor_id   TEXT REFERENCES vendors(id) ON DELETE SET NULL,
	best_vendor_name TEXT NOT NULL DEFAULT '',
	automation_2024  DOUBLE PRECISION NOT NULL DEFAULT 0,
	automation_2025  DOUBLE PRECISION NOT NULL DEFAULT 0,
	automation_2026  DOUBLE PRECISION NOT NULL DEFAULT 0,
	hrf_scores       JSONB NOT NULL DEFAULT '{}',
	composite_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	recommendations  JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	if err := fn(txWriter{queries{c: pgConn{q: tx}}}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return eris.Wrapf(err, "postgres: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit tx")
	}
	return nil
}
