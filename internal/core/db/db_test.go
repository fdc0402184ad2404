package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/jsonforge/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, MigrateUp(ctx, db))
	return db
}

func TestDataSourceFor(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite://journal.db", "sqlite3", "journal.db", false},
		{"sqlite:///var/lib/jf/journal.db", "sqlite3", "/var/lib/jf/journal.db", false},
		{"postgres://u:p@localhost:5432/jf?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/jf?sslmode=disable", false},
		{"sqlite://", "", "", true},
		{"mysql://localhost/jf", "", "", true},
		{"::", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := dataSourceFor(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	// Second run is a no-op.
	require.NoError(t, MigrateUp(ctx, db))

	statuses, err := MigrateStatus(ctx, db)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "001_run_journal.sql", statuses[0].ID)
	assert.True(t, statuses[0].Applied)
	assert.NotNil(t, statuses[0].AppliedAt)

	_, err = db.ExecContext(ctx, "UPDATE migrations SET checksum = 'tampered'")
	require.NoError(t, err)
	assert.Error(t, MigrateUp(ctx, db))
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j, err := NewJournal(openTestDB(t))
	require.NoError(t, err)

	first := Run{
		ID: types.NewRunID(), RulesDigest: "abc", State: RunCompleted, Applied: 3,
		InputBytes: 10, OutputBytes: 12, DurationMs: 1, CreatedAt: "2026-01-01T00:00:00Z",
	}
	second := Run{
		ID: types.NewRunID(), RulesDigest: "abc", State: RunAborted, Applied: 1, StoppedBy: "validate",
		Error: "1 schema violation(s)", InputBytes: 5, CreatedAt: "2026-01-02T00:00:00Z",
	}
	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))
	require.Error(t, j.Record(ctx, first), "duplicate run ID")

	got, err := j.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = j.Get(ctx, types.NewRunID())
	assert.True(t, errors.Is(err, ErrRunNotFound), "err = %v", err)

	recent, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	counts, err := j.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StateCount{{State: RunAborted, Total: 1}, {State: RunCompleted, Total: 1}}, counts)
}

func TestJournal_RecordDefaultsCreatedAt(t *testing.T) {
	ctx := context.Background()
	j, err := NewJournal(openTestDB(t))
	require.NoError(t, err)

	id := types.NewRunID()
	require.NoError(t, j.Record(ctx, Run{ID: id, State: RunStopped}))
	got, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, got.CreatedAt)
}
