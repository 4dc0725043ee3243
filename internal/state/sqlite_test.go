package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapseed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"), "failed to open store")
	require.NoError(t, store.Migrate(), "failed to run migrations")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"), "failed to open in-memory store")
	assert.NoError(t, store.Close(), "failed to close store")
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// Migrating again is a no-op
	require.NoError(t, store.Migrate())

	rows, err := store.db.Query("SELECT sequences, executed FROM runs LIMIT 1")
	require.NoError(t, err, "runs table has every migrated column")
	_ = rows.Close()
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "s", "postgres")
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.ErrorIs(t, store.CompleteRun(ctx, "x", Result{}), ErrNotOpened)
	_, err = store.ListRuns(ctx, 1)
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.ErrorIs(t, store.Migrate(), ErrNotOpened)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		verify func(t *testing.T, run *Run)
	}{
		{
			name: "completed",
			result: Result{
				Status:     RunStatusCompleted,
				Statements: 7,
				Executed:   true,
				Rows:       map[string]int{"users": 3, "posts": 2},
				Sequences:  map[string]int64{"users_id_seq": 4, "posts_id_seq": 3},
			},
			verify: func(t *testing.T, run *Run) {
				assert.Equal(t, RunStatusCompleted, run.Status)
				assert.Equal(t, 7, run.Statements)
				assert.True(t, run.Executed)
				assert.Equal(t, 5, run.TotalRows())
				assert.Equal(t, map[string]int64{"users_id_seq": 4, "posts_id_seq": 3}, run.Sequences)
				assert.Empty(t, run.Error)
			},
		},
		{
			name:   "failed",
			result: Result{Status: RunStatusFailed, Error: "boom"},
			verify: func(t *testing.T, run *Run) {
				assert.Equal(t, RunStatusFailed, run.Status)
				assert.Equal(t, "boom", run.Error)
				assert.False(t, run.Executed)
				assert.Empty(t, run.Rows)
				assert.Equal(t, 0, run.TotalRows())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			run, err := store.CreateRun(ctx, "fixtures", "postgres")
			require.NoError(t, err)
			_, err = uuid.Parse(run.ID)
			require.NoError(t, err, "run ids are UUIDs")
			assert.Equal(t, RunStatusRunning, run.Status)

			pending, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Nil(t, pending.CompletedAt)
			assert.Equal(t, "fixtures", pending.Seed)
			assert.Equal(t, "postgres", pending.Dialect)
			assert.True(t, pending.StartedAt.Equal(run.StartedAt))

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.result))

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			require.NotNil(t, got.CompletedAt)
			assert.False(t, got.CompletedAt.Before(got.StartedAt))
			tt.verify(t, got)
		})
	}
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorContains(t, err, "run not found: missing")
	assert.ErrorContains(t, store.CompleteRun(ctx, "missing", Result{Status: RunStatusCompleted}), "run not found")

	latest, err := store.LatestCompletedRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLiteStore_ListAndLatest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for i, status := range []RunStatus{RunStatusCompleted, RunStatusCompleted, RunStatusFailed} {
		run, err := store.CreateRun(ctx, "s", "sqlite")
		require.NoError(t, err)
		require.NoError(t, store.CompleteRun(ctx, run.ID, Result{
			Status:    status,
			Sequences: map[string]int64{"seq": int64(i + 1)},
		}))
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{runs[0].ID, runs[1].ID, runs[2].ID}, "newest first")

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err := store.LatestCompletedRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ids[1], latest.ID, "failed runs are skipped")
	assert.Equal(t, map[string]int64{"seq": 2}, latest.Sequences)
}

func TestSQLiteStore_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	run, err := store.CreateRun(ctx, "s", "duckdb")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate())

	got, err := reopened.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", got.Dialect)
}
