package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/iocache"
	"github.com/huangsam/miklabel/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const rawHeader = "CombinedID\tID\tArea\tTitle\tDescription\tAuthor\tIsPR\tFilePaths"

// writeRawDataset writes issues issue rows followed by prs pull request rows.
// Issue labels alternate between area-mvc and area-blazor.
func writeRawDataset(t *testing.T, dir string, issues, prs int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(rawHeader + "\n")
	labels := []string{"area-mvc", "area-blazor"}
	for i := range issues {
		fmt.Fprintf(&b, "A/%d,repo1\t%d\t%s\tTitle %d\tHello @bob\tauthor\t0\t\n", i, i, labels[i%2], i)
	}
	for i := range prs {
		id := issues + i
		fmt.Fprintf(&b, "A/%d,repo1\t%d\tarea-mvc\tFix %d\tbody\tauthor\t1\tsrc/a.cs\n", id, id, id)
	}
	path := filepath.Join(dir, "raw.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testPrepareConfig(t *testing.T, input string) *contract.Config {
	t.Helper()
	dir := filepath.Dir(input)
	return &contract.Config{
		InputPath: input,
		Kind:      schema.IssuesKind,
		Partitions: contract.PartitionPaths{
			Train:    filepath.Join(dir, "train.tsv"),
			Validate: filepath.Join(dir, "validate.tsv"),
			Test:     filepath.Join(dir, "test.tsv"),
		},
		Policies:   schema.DefaultRowPolicies(),
		Precision:  1,
		Width:      120,
		OutputFile: filepath.Join(dir, "summary.txt"),
	}
}

// noStores returns a cache manager without reshape cache or run tracking.
func noStores() *iocache.MockCacheManager {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReshapeStore").Return(nil)
	mgr.On("GetRunStore").Return(nil)
	return mgr
}

// TestGetPrepareResults tests the full pipeline without any stores.
func TestGetPrepareResults(t *testing.T) {
	input := writeRawDataset(t, t.TempDir(), 1000, 20)
	cfg := testPrepareConfig(t, input)
	mgr := noStores()

	summary, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, mgr)
	require.NoError(t, err)

	assert.False(t, summary.CacheHit)
	assert.Equal(t, 1020, summary.Stats.Read)
	assert.Equal(t, 1000, summary.FilteredRows)
	assert.Equal(t, schema.PartitionCounts{Train: 800, Validate: 100, Test: 100}, summary.Counts)
	assert.Zero(t, summary.RunID)
	require.Len(t, summary.Partitions, 3)

	for _, p := range summary.Partitions {
		tbl, err := dataset.ReadTable(p.Path)
		require.NoError(t, err, p.Name)
		assert.Equal(t, p.Rows, tbl.Len())
		assert.Equal(t, schema.ReshapedHeader(schema.IssuesKind), tbl.Header)
	}
	mgr.AssertExpectations(t)
}

func TestGetPrepareResultsErrors(t *testing.T) {
	t.Run("missing input path", func(t *testing.T) {
		_, err := GetPrepareResults(context.Background(), &contract.Config{}, noStores())
		assert.ErrorContains(t, err, "input dataset is required")
	})

	t.Run("input does not exist", func(t *testing.T) {
		cfg := testPrepareConfig(t, filepath.Join(t.TempDir(), "missing.tsv"))
		_, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, noStores())
		assert.ErrorContains(t, err, "cannot read input dataset")
	})

	t.Run("invalid remap rules", func(t *testing.T) {
		cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 1, 0))
		cfg.Remap.Labels = []contract.LabelRule{{To: "area-mvc"}}
		_, err := GetPrepareResults(context.Background(), cfg, noStores())
		assert.ErrorContains(t, err, "invalid remap rules")
	})

	t.Run("too few rows", func(t *testing.T) {
		cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 999, 50))
		_, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, noStores())
		assert.ErrorIs(t, err, dataset.ErrTooFewRows)
		_, statErr := os.Stat(cfg.Partitions.Train)
		assert.True(t, os.IsNotExist(statErr), "no partition written")
	})

	t.Run("failed prepare starts no run", func(t *testing.T) {
		cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 999, 0))
		runStore := &iocache.MockRunStore{}
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetReshapeStore").Return(nil)
		mgr.On("GetRunStore").Return(runStore)

		_, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, mgr)
		assert.ErrorIs(t, err, dataset.ErrTooFewRows)
		runStore.AssertNotCalled(t, "BeginRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		runStore.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
	})
}

// TestGetPrepareResultsRecordsRun tests run tracking through the run store.
func TestGetPrepareResultsRecordsRun(t *testing.T) {
	input := writeRawDataset(t, t.TempDir(), 1000, 0)
	cfg := testPrepareConfig(t, input)

	runStore := &iocache.MockRunStore{}
	runStore.On("BeginRun", mock.Anything, schema.IssuesKind, input, mock.Anything, mock.Anything).Return(int64(7), nil)
	for _, name := range schema.AllPartitions {
		runStore.On("RecordLabelCounts", int64(7), name, mock.Anything).Return(nil)
	}
	runStore.On("EndRun", int64(7), mock.Anything, mock.MatchedBy(func(o schema.RunOutcome) bool {
		return o.Counts.Train == 800 && o.Stats.Written == 1000
	})).Return(nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReshapeStore").Return(nil)
	mgr.On("GetRunStore").Return(runStore)

	summary, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.RunID)
	runStore.AssertExpectations(t)
}

// TestGetPrepareResultsRunTrackingFailure tests that a failing run store does not fail the prepare.
func TestGetPrepareResultsRunTrackingFailure(t *testing.T) {
	cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 1000, 0))

	runStore := &iocache.MockRunStore{}
	runStore.On("BeginRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), errors.New("database is locked"))

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReshapeStore").Return(nil)
	mgr.On("GetRunStore").Return(runStore)

	summary, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, mgr)
	require.NoError(t, err)
	assert.Zero(t, summary.RunID)
	runStore.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

// TestGetPrepareResultsCacheHit tests that a second prepare reuses the cached reshape.
func TestGetPrepareResultsCacheHit(t *testing.T) {
	cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 1000, 10))

	var stored []byte
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("not found")).Once()
	store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).([]byte) }).
		Return(nil).Once()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReshapeStore").Return(store)
	mgr.On("GetRunStore").Return(nil)

	ctx := WithSuppressHeader(context.Background())
	first, err := GetPrepareResults(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	require.NotEmpty(t, stored)

	store.On("Get", mock.Anything).Return(stored, currentCacheVersion, time.Now().Unix(), nil).Once()
	second, err := GetPrepareResults(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Counts, second.Counts)
	store.AssertExpectations(t)
}

// TestGetPrepareResultsCacheHitKeepsBytes tests that cells which are not valid
// UTF-8 come back from the cache unchanged.
func TestGetPrepareResultsCacheHitKeepsBytes(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString(rawHeader + "\n")
	for i := range 1000 {
		fmt.Fprintf(&b, "A/%d,repo1\t%d\tarea-mvc\tcaf\xe9 na\xefve %d\tr\xe9sum\xe9 @bob\tauthor\t0\t\n", i, i, i)
	}
	input := filepath.Join(dir, "raw.tsv")
	require.NoError(t, os.WriteFile(input, []byte(b.String()), 0o644))
	cfg := testPrepareConfig(t, input)
	cfg.ReshapedPath = filepath.Join(dir, "reshaped.tsv")

	var stored []byte
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("not found")).Once()
	store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).([]byte) }).
		Return(nil).Once()

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReshapeStore").Return(store)
	mgr.On("GetRunStore").Return(nil)

	ctx := WithSuppressHeader(context.Background())
	_, err := GetPrepareResults(ctx, cfg, mgr)
	require.NoError(t, err)
	fresh, err := os.ReadFile(cfg.ReshapedPath)
	require.NoError(t, err)
	freshTrain, err := os.ReadFile(cfg.Partitions.Train)
	require.NoError(t, err)
	require.Contains(t, string(fresh), "caf\xe9 na\xefve")

	store.On("Get", mock.Anything).Return(stored, currentCacheVersion, time.Now().Unix(), nil).Once()
	second, err := GetPrepareResults(ctx, cfg, mgr)
	require.NoError(t, err)
	require.True(t, second.CacheHit)

	cached, err := os.ReadFile(cfg.ReshapedPath)
	require.NoError(t, err)
	cachedTrain, err := os.ReadFile(cfg.Partitions.Train)
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
	assert.Equal(t, freshTrain, cachedTrain)
}

// TestGetPrepareResultsLabelRemap tests that remap rules reach the reshaped rows.
func TestGetPrepareResultsLabelRemap(t *testing.T) {
	dir := t.TempDir()
	cfg := testPrepareConfig(t, writeRawDataset(t, dir, 1000, 0))
	cfg.Remap.Labels = []contract.LabelRule{{Repo: "repo1", From: "area-blazor", To: "area-components"}}
	cfg.ReshapedPath = filepath.Join(dir, "reshaped.tsv")

	_, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, noStores())
	require.NoError(t, err)

	tbl, err := dataset.ReadTable(cfg.ReshapedPath)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, lc := range dataset.LabelCounts(tbl) {
		counts[lc.Label] = lc.Rows
	}
	assert.Equal(t, map[string]int{"area-mvc": 500, "area-components": 500}, counts)
}

func TestExecutePrepare(t *testing.T) {
	cfg := testPrepareConfig(t, writeRawDataset(t, t.TempDir(), 1000, 0))

	require.NoError(t, ExecutePrepare(WithSuppressHeader(context.Background()), cfg, noStores()))

	out, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Rows: read 1,000, written 1,000")
	assert.Contains(t, string(out), "area-mvc")
}
