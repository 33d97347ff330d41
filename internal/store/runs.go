package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

const upsertRunSQL = `INSERT INTO corrosight.pipeline_runs (id, dataset_id, status, stage, message, generation, pairs, matches, started_at, finished_at, created_at, updated_at)
VALUES ($1,NULLIF($2,''),$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,0),$7,$8,$9,$10,NOW(),NOW())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    stage = EXCLUDED.stage,
    message = EXCLUDED.message,
    generation = EXCLUDED.generation,
    pairs = EXCLUDED.pairs,
    matches = EXCLUDED.matches,
    finished_at = EXCLUDED.finished_at,
    updated_at = NOW()`

const upsertPairFailureSQL = `INSERT INTO corrosight.pipeline_pair_failures (run_id, pair, stage, reason)
VALUES ($1,$2,$3,$4)
ON CONFLICT (run_id, pair) DO UPDATE
SET stage = EXCLUDED.stage,
    reason = EXCLUDED.reason`

// RecordRun stores one pipeline execution and its skipped pairs in a batch.
func (s *Store) RecordRun(ctx context.Context, rec pipeline.RunRecord) error {
	batch := &pgx.Batch{}
	batch.Queue(upsertRunSQL,
		rec.ID, rec.DatasetID, rec.Status, rec.Stage, rec.Error, int64(rec.Generation),
		rec.Pairs, rec.Matches, rec.StartedAt, rec.FinishedAt)
	for _, f := range rec.Failures {
		batch.Queue(upsertPairFailureSQL, rec.ID, f.Pair, f.Stage, f.Reason)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("record pipeline run %s: %w", rec.ID, err)
		}
	}
	return nil
}

// RunRow is a stored pipeline execution.
type RunRow struct {
	ID         string    `json:"id"`
	DatasetID  *string   `json:"dataset_id,omitempty"`
	Status     string    `json:"status"`
	Stage      *string   `json:"stage,omitempty"`
	Message    *string   `json:"message,omitempty"`
	Generation *int64    `json:"generation,omitempty"`
	Pairs      int       `json:"pairs"`
	Matches    int       `json:"matches"`
	Failures   int       `json:"pair_failures"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const listRunsSQL = `
    SELECT r.id::text, r.dataset_id, r.status, r.stage, r.message, r.generation, r.pairs, r.matches,
           (SELECT COUNT(*) FROM corrosight.pipeline_pair_failures f WHERE f.run_id = r.id),
           r.started_at, r.finished_at
    FROM corrosight.pipeline_runs r
    ORDER BY r.started_at DESC
    LIMIT $1
`

// ListRuns returns the most recent pipeline executions.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunRow, 0)
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(
			&r.ID,
			&r.DatasetID,
			&r.Status,
			&r.Stage,
			&r.Message,
			&r.Generation,
			&r.Pairs,
			&r.Matches,
			&r.Failures,
			&r.StartedAt,
			&r.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
