package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressdesk/brandbatch/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateRun_And_GetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, fetched.ID)
	assert.Equal(t, "favoritos", fetched.Source)
	assert.Nil(t, fetched.Result)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)

	err = st.UpdateRunStatus(ctx, run.ID, model.RunStatusAnalyzing)
	require.NoError(t, err)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusAnalyzing, fetched.Status)
}

func TestSQLite_UpdateRunStatus_MissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateRunStatus(context.Background(), "nope", model.RunStatusComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateRunResult_Complete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)

	result := &model.RunResult{
		NewsCount:         120,
		ConsolidatedCount: 340,
		FinalCount:        95,
		LastStage:         "finalize",
		OutputPath:        "/out/Tabela_atualizacao_em_lote_limpo.xlsx",
	}
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, result))

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, fetched.Status)
	require.NotNil(t, fetched.Result)
	assert.Equal(t, 95, fetched.Result.FinalCount)
	assert.Equal(t, "finalize", fetched.Result.LastStage)
}

func TestSQLite_UpdateRunResult_FailureKeepsLastStage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)

	result := &model.RunResult{
		NewsCount: 120,
		LastStage: "analyze",
		Error:     "prominence pass aborted",
	}
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, result))

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, fetched.Status)
	require.NotNil(t, fetched.Result)
	assert.Equal(t, "analyze", fetched.Result.LastStage)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "clipping")
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_ListRuns_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete))

	_, err = st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSQLite_ListRuns_FilterBySource(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "clipping")
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Source: "clipping", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "clipping", runs[0].Source)
}

func TestSQLite_CreateStage_And_CompleteStage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "favoritos")
	require.NoError(t, err)

	stage, err := st.CreateStage(ctx, run.ID, "reconcile")
	require.NoError(t, err)
	assert.NotEmpty(t, stage.ID)
	assert.Equal(t, model.StageStatusRunning, stage.Status)

	err = st.CompleteStage(ctx, stage.ID, &model.StageResult{
		Name:   "reconcile",
		Status: model.StageStatusComplete,
		Metadata: map[string]any{
			"rows": 340,
		},
	})
	require.NoError(t, err)

	stages, err := st.ListStages(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, model.StageStatusComplete, stages[0].Status)
	require.NotNil(t, stages[0].Result)
	assert.Equal(t, "reconcile", stages[0].Result.Name)
}

func TestSQLite_ListStages_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	stages, err := st.ListStages(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate was already called in newTestSQLiteStore; calling again
	// should not error.
	require.NoError(t, st.Migrate(context.Background()))
}
