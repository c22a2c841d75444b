package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareReshaped runs a prepare that also keeps the reshaped table and
// returns a config pointing at it.
func prepareReshaped(t *testing.T, kind schema.DatasetKind, issues, prs int) *contract.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testPrepareConfig(t, writeRawDataset(t, dir, issues, prs))
	cfg.Kind = kind
	cfg.ReshapedPath = filepath.Join(dir, "reshaped.tsv")
	_, err := GetPrepareResults(WithSuppressHeader(context.Background()), cfg, noStores())
	require.NoError(t, err)

	out := *cfg
	out.InputPath = cfg.ReshapedPath
	out.Partitions = contract.PartitionPaths{
		Train:    filepath.Join(dir, "split-train.tsv"),
		Validate: filepath.Join(dir, "split-validate.tsv"),
		Test:     filepath.Join(dir, "split-test.tsv"),
	}
	return &out
}

func TestGetSegments(t *testing.T) {
	cfg := &contract.Config{Remap: contract.RemapConfig{
		Files: []contract.FileRule{{Repo: "mvc", From: "src/", To: "src/Mvc/"}},
	}}

	diff, err := GetSegments(cfg, []string{"src/a.cs", "docs/readme.md"}, "mvc")
	require.NoError(t, err)
	assert.Equal(t, 1, diff.Folders.Count("src/Mvc"))
	assert.Equal(t, 1, diff.FolderNames.Count("Mvc"))

	diff, err = GetSegments(cfg, []string{"src/a.cs"}, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, diff.Folders.Count("src"))

	cfg.Remap.Files = []contract.FileRule{{To: "x"}}
	_, err = GetSegments(cfg, []string{"src/a.cs"}, "")
	assert.ErrorContains(t, err, "invalid remap rules")
}

func TestExecuteSegment(t *testing.T) {
	cfg := &contract.Config{
		Output:     schema.CSVOut,
		OutputFile: filepath.Join(t.TempDir(), "segments.csv"),
	}
	require.NoError(t, ExecuteSegment(context.Background(), cfg, []string{"src/a.cs", "src/b.cs"}, ""))

	out, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), "grouping,token,count")
	assert.Contains(t, string(out), "extensions,cs,2")
}

func TestExecuteDatasetFilter(t *testing.T) {
	// The reshaped table holds only pull requests, so filtering for issues empties it
	cfg := prepareReshaped(t, schema.PrsKind, 0, 1000)
	target := filepath.Join(t.TempDir(), "prs.tsv")

	require.NoError(t, ExecuteDatasetFilter(context.Background(), cfg, target))
	tbl, err := dataset.ReadTable(target)
	require.NoError(t, err)
	assert.Equal(t, 1000, tbl.Len())

	cfg.Kind = schema.IssuesKind
	require.NoError(t, ExecuteDatasetFilter(context.Background(), cfg, target))
	tbl, err = dataset.ReadTable(target)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestExecuteDatasetFilterRejectsInputAsOutput(t *testing.T) {
	cfg := prepareReshaped(t, schema.IssuesKind, 1000, 0)
	before, err := os.ReadFile(cfg.InputPath)
	require.NoError(t, err)

	err = ExecuteDatasetFilter(context.Background(), cfg, cfg.InputPath)
	assert.ErrorContains(t, err, "must not overwrite the input")

	after, err := os.ReadFile(cfg.InputPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorContains(t, ExecuteDatasetFilter(context.Background(), cfg, ""), "output path is required")
}

func TestExecuteDatasetSplit(t *testing.T) {
	cfg := prepareReshaped(t, schema.IssuesKind, 2000, 0)
	cfg.Output = schema.JSONOut

	require.NoError(t, ExecuteDatasetSplit(context.Background(), cfg))
	for name, want := range map[string]int{cfg.Partitions.Train: 1600, cfg.Partitions.Validate: 200, cfg.Partitions.Test: 200} {
		tbl, err := dataset.ReadTable(name)
		require.NoError(t, err)
		assert.Equal(t, want, tbl.Len(), name)
	}
}

func TestExecuteDatasetSplitTooFewRows(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "small.tsv")
	require.NoError(t, dataset.WriteTable(input, &dataset.Table{Header: schema.ReshapedHeader(schema.IssuesKind)}))
	cfg := &contract.Config{InputPath: input, Partitions: contract.PartitionPaths{
		Train: filepath.Join(dir, "a.tsv"), Validate: filepath.Join(dir, "b.tsv"), Test: filepath.Join(dir, "c.tsv"),
	}}

	err := ExecuteDatasetSplit(context.Background(), cfg)
	assert.ErrorIs(t, err, dataset.ErrTooFewRows)
}

func TestExecuteDatasetExport(t *testing.T) {
	cfg := prepareReshaped(t, schema.PrsKind, 0, 1000)
	target := filepath.Join(t.TempDir(), "reshaped.parquet")

	require.NoError(t, ExecuteDatasetExport(context.Background(), cfg, target))

	f, err := os.Open(target)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	require.NoError(t, err)
	pf, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), pf.NumRows())

	err = ExecuteDatasetExport(context.Background(), cfg, "")
	assert.ErrorContains(t, err, "--output-file is required")
}
