package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS statuscomms_runs (
	run_id           UUID PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	phase            TEXT NOT NULL,
	overall_status   TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	record           JSONB NOT NULL
)`

// PGStore archives runs in Postgres, one row per run with the full record as JSONB.
type PGStore struct {
	pool    *pgxpool.Pool
	maxRuns int
}

// OpenPG connects, verifies the connection and ensures the table exists.
func OpenPG(ctx context.Context, connString string, maxRuns int) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &PGStore{pool: pool, maxRuns: maxRuns}, nil
}

func (s *PGStore) Save(ctx context.Context, r Record) error {
	if !ValidID(r.RunID) {
		return fmt.Errorf("invalid run id %q", r.RunID)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO statuscomms_runs (run_id, created_at, phase, overall_status, confidence_score, record)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET record = EXCLUDED.record`,
		r.RunID, r.CreatedAt, string(r.Phase), string(r.Report.OverallStatus), r.Report.ConfidenceScore, b)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if s.maxRuns > 0 {
		_, err = s.pool.Exec(ctx, `
			DELETE FROM statuscomms_runs WHERE run_id NOT IN (
				SELECT run_id FROM statuscomms_runs ORDER BY created_at DESC LIMIT $1
			)`, s.maxRuns)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, runID string) (Record, error) {
	if !ValidID(runID) {
		return Record{}, ErrNotFound
	}
	var b []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM statuscomms_runs WHERE run_id = $1`, runID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decode run record: %w", err)
	}
	return r, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
