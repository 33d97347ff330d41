// Package store reads normalized inspection datasets from Postgres and keeps
// the pipeline run history.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a dataset does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS corrosight;

CREATE TABLE IF NOT EXISTS corrosight.datasets (
    id         text PRIMARY KEY,
    name       text,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS corrosight.runs (
    dataset_id text NOT NULL REFERENCES corrosight.datasets(id) ON DELETE CASCADE,
    year       integer NOT NULL,
    vendor     text,
    PRIMARY KEY (dataset_id, year)
);

CREATE TABLE IF NOT EXISTS corrosight.girth_welds (
    dataset_id   text NOT NULL,
    run_year     integer NOT NULL,
    seq          integer NOT NULL,
    joint_number integer,
    distance_ft  double precision NOT NULL,
    PRIMARY KEY (dataset_id, run_year, seq),
    FOREIGN KEY (dataset_id, run_year) REFERENCES corrosight.runs(dataset_id, year) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS corrosight.anomalies (
    dataset_id        text NOT NULL,
    run_year          integer NOT NULL,
    id                text NOT NULL,
    joint_number      integer,
    distance_ft       double precision NOT NULL,
    clock_hours       double precision,
    depth_pct         double precision,
    length_in         double precision,
    width_in          double precision,
    event_type        text NOT NULL,
    surface           text,
    wall_thickness_in double precision,
    comments          text,
    PRIMARY KEY (dataset_id, run_year, id),
    FOREIGN KEY (dataset_id, run_year) REFERENCES corrosight.runs(dataset_id, year) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS corrosight.repair_zones (
    dataset_id text NOT NULL,
    run_year   integer NOT NULL,
    start_ft   double precision NOT NULL,
    end_ft     double precision NOT NULL,
    kind       text,
    FOREIGN KEY (dataset_id, run_year) REFERENCES corrosight.runs(dataset_id, year) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS corrosight.pipeline_runs (
    id          uuid PRIMARY KEY,
    dataset_id  text,
    status      text NOT NULL,
    stage       text,
    message     text,
    generation  bigint,
    pairs       integer NOT NULL DEFAULT 0,
    matches     integer NOT NULL DEFAULT 0,
    started_at  timestamptz NOT NULL,
    finished_at timestamptz NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT NOW(),
    updated_at  timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS corrosight.pipeline_pair_failures (
    run_id uuid NOT NULL REFERENCES corrosight.pipeline_runs(id) ON DELETE CASCADE,
    pair   text NOT NULL,
    stage  text NOT NULL,
    reason text NOT NULL,
    PRIMARY KEY (run_id, pair)
);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}
