package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/jsonforge/internal/types"
)

// ErrRunNotFound indicates a run ID with no journal entry.
var ErrRunNotFound = errors.New("run not found")

// Run outcomes recorded in the journal.
const (
	RunCompleted = "completed"
	RunStopped   = "stopped"
	RunAborted   = "aborted"
	RunFailed    = "failed"
)

// Run is one journal entry.
type Run struct {
	ID          types.RunID `db:"run_id" json:"run_id"`
	RulesDigest string      `db:"rules_digest" json:"rules_digest"`
	State       string      `db:"state" json:"state"`
	Applied     int         `db:"applied" json:"applied"`
	StoppedBy   string      `db:"stopped_by" json:"stopped_by,omitempty"`
	Error       string      `db:"error" json:"error,omitempty"`
	InputBytes  int64       `db:"input_bytes" json:"input_bytes"`
	OutputBytes int64       `db:"output_bytes" json:"output_bytes"`
	DurationMs  int64       `db:"duration_ms" json:"duration_ms"`
	CreatedAt   string      `db:"created_at" json:"created_at"`
}

// StateCount is the number of runs in one state.
type StateCount struct {
	State string `db:"state" json:"state"`
	Total int64  `db:"total" json:"total"`
}

// Journal records transformation runs.
type Journal struct {
	queries *Queries
}

// NewJournal loads the journal queries for db. The schema must already be
// migrated (MigrateUp).
func NewJournal(db *sqlx.DB) (*Journal, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Journal{queries: q}, nil
}

// Record inserts r. A zero CreatedAt is set to now.
func (j *Journal) Record(ctx context.Context, r Run) error {
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := j.queries.Exec(ctx, "insert-run",
		string(r.ID), r.RulesDigest, r.State, r.Applied, r.StoppedBy, r.Error,
		r.InputBytes, r.OutputBytes, r.DurationMs, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the run with id.
func (j *Journal) Get(ctx context.Context, id types.RunID) (Run, error) {
	var r Run
	err := j.queries.Get(ctx, "get-run", &r, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	if err := j.queries.Select(ctx, "list-recent-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// CountByState returns the number of runs per state.
func (j *Journal) CountByState(ctx context.Context) ([]StateCount, error) {
	var counts []StateCount
	if err := j.queries.Select(ctx, "count-runs-by-state", &counts); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	return counts, nil
}
