// Package runlog persists a row per pipeline run in PostgreSQL. The ledger
// is advisory: it records progress and outcomes for operators, and its
// failures never fail a run.
package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notedigest/internal/pipeline"
	"notedigest/pkg/postgres"
)

// Run is the ledger entry created when a scan run starts fanning out.
type Run struct {
	ID        string
	Queue     string
	Keys      pipeline.BucketKeys
	Documents int
	Diffs     int
	URLs      int
}

// Store persists run rows in PostgreSQL.
//
// It requires a `digest_runs` table:
//
//	CREATE TABLE digest_runs (
//	    id          UUID PRIMARY KEY,
//	    queue       TEXT NOT NULL,
//	    notes_key   TEXT NOT NULL,
//	    urls_key    TEXT NOT NULL,
//	    documents   INT NOT NULL,
//	    diffs       INT NOT NULL,
//	    urls        INT NOT NULL,
//	    status      TEXT NOT NULL,
//	    cause       TEXT,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a run ledger store. A nil db yields a no-op store so the
// pipeline runs without PostgreSQL in development.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "runlog"),
	}
}

// Start records a new run in the running state.
func (s *Store) Start(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO digest_runs (id, queue, notes_key, urls_key, documents, diffs, urls, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'running', $8)`,
		run.ID, run.Queue, run.Keys.NotesKey, run.Keys.URLsKey,
		run.Documents, run.Diffs, run.URLs, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// MarkCompleted transitions a run to completed.
func (s *Store) MarkCompleted(ctx context.Context, runID string) error {
	return s.finish(ctx, runID, "completed", "")
}

// MarkFailed transitions a run to failed with a short cause.
func (s *Store) MarkFailed(ctx context.Context, runID, cause string) error {
	return s.finish(ctx, runID, "failed", cause)
}

func (s *Store) finish(ctx context.Context, runID, status, cause string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.DB.ExecContext(ctx,
		`UPDATE digest_runs SET status=$2, cause=NULLIF($3, ''), finished_at=$4 WHERE id=$1`,
		runID, status, cause, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("updating run %s to %s: %w", runID, status, err)
	}
	s.logger.Info("run status updated", "run_id", runID, "status", status)
	return nil
}
