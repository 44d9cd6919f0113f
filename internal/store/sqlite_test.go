package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phonematch-cli/internal/model"
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

var _ Store = (*SQLiteStore)(nil)

// --- Runs ---

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.Run{
		Provider:   "naver",
		InputPath:  "stores.csv",
		OutputPath: "out/result_260101000000.csv",
		StartIndex: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, model.RunKindCrawl, run.Kind)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "naver", got.Provider)
	assert.Equal(t, "out/result_260101000000.csv", got.OutputPath)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Zero(t, got.Processed)
	assert.Nil(t, got.Counts)
}

func TestSQLite_RunProgressAndFinish(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.Run{OutputPath: "r.csv"})
	require.NoError(t, err)

	counts := map[model.StatusCode]int{model.StatusMatched: 2, model.StatusNoResults: 1}
	require.NoError(t, st.UpdateRunProgress(ctx, run.ID, 3, 3, counts))
	require.NoError(t, st.FinishRun(ctx, run.ID, model.RunStatusInterrupted, ""))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.LastIndex)
	assert.Equal(t, 3, got.Processed)
	assert.Equal(t, counts, got.Counts)
	assert.Equal(t, model.RunStatusInterrupted, got.Status)
	assert.Equal(t, 2, got.Matched())
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, st.UpdateRunProgress(ctx, "nope", 1, 1, nil))
	assert.Error(t, st.FinishRun(ctx, "nope", model.RunStatusFailed, "x"))
	_, err := st.GetRun(ctx, "nope")
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, model.Run{OutputPath: "a.csv"})
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.Run{Kind: model.RunKindRetry, OutputPath: "b.csv"})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, a.ID, model.RunStatusComplete, ""))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	retries, err := st.ListRuns(ctx, RunFilter{Kind: model.RunKindRetry})
	require.NoError(t, err)
	require.Len(t, retries, 1)
	assert.Equal(t, "b.csv", retries[0].OutputPath)

	done, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)

	byPath, err := st.ListRuns(ctx, RunFilter{OutputPath: "a.csv", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, byPath, 1)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	future, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

// --- Search Cache ---

func TestSQLite_SearchCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "naver:아주식당 아주동", []byte(`{"items":[]}`), time.Hour))

	data, err := st.GetCachedSearch(ctx, "naver:아주식당 아주동")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(data))
}

func TestSQLite_SearchCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	data, err := st.GetCachedSearch(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_SearchCache_ExpiredAndSweep(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "old", []byte("x"), -time.Hour))
	require.NoError(t, st.SetCachedSearch(ctx, "fresh", []byte("y"), time.Hour))

	data, err := st.GetCachedSearch(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := st.DeleteExpiredSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err = st.GetCachedSearch(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}

func TestSQLite_SearchCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "k", []byte("original"), time.Hour))
	require.NoError(t, st.SetCachedSearch(ctx, "k", []byte("updated"), time.Hour))

	data, err := st.GetCachedSearch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "updated", string(data))
}
