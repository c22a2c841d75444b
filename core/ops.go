package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/core/remap"
	"github.com/huangsam/miklabel/core/segment"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/outwriter"
	"github.com/huangsam/miklabel/internal/parquet"
	"github.com/huangsam/miklabel/schema"
)

// ExecuteSegment remaps and segments paths, then prints the four groupings.
// sourceRepo selects repo-specific file rules and may be empty.
func ExecuteSegment(_ context.Context, cfg *contract.Config, paths []string, sourceRepo string) error {
	diff, err := GetSegments(cfg, paths, sourceRepo)
	if err != nil {
		return err
	}
	return outwriter.PrintSegments(diff, cfg)
}

// GetSegments applies the configured file remap rules to paths and segments the result.
func GetSegments(cfg *contract.Config, paths []string, sourceRepo string) (schema.SegmentedDiff, error) {
	rules, err := remap.New(cfg.Remap)
	if err != nil {
		return schema.SegmentedDiff{}, fmt.Errorf("invalid remap rules: %w", err)
	}
	return segment.New().Segment(rules.Files(paths, sourceRepo)), nil
}

// ExecuteDatasetFilter keeps the rows of a reshaped table that belong to
// cfg.Kind and writes them to outputPath.
func ExecuteDatasetFilter(_ context.Context, cfg *contract.Config, outputPath string) error {
	if err := checkDistinctOutput(cfg.InputPath, outputPath); err != nil {
		return err
	}
	t, err := dataset.ReadTable(cfg.InputPath)
	if err != nil {
		return err
	}
	filtered, err := dataset.FilterKind(t, cfg.Kind)
	if err != nil {
		return err
	}
	if err := dataset.WriteTable(outputPath, filtered); err != nil {
		return err
	}
	fmt.Printf("Kept %d of %d rows as %s to %s\n", filtered.Len(), t.Len(), cfg.Kind, outputPath)
	return nil
}

// ExecuteDatasetSplit partitions a reshaped table into the configured
// train, validate and test files.
func ExecuteDatasetSplit(_ context.Context, cfg *contract.Config) error {
	start := time.Now()
	t, err := dataset.ReadTable(cfg.InputPath)
	if err != nil {
		return err
	}
	parts, err := dataset.Split(t)
	if err != nil {
		return err
	}
	summaries, err := dataset.WritePartitions(parts, cfg.Partitions)
	if err != nil {
		return err
	}
	return outwriter.PrintSplitSummary(summaries, cfg, time.Since(start))
}

// ExecuteDatasetExport converts a reshaped table into a Parquet file.
func ExecuteDatasetExport(_ context.Context, cfg *contract.Config, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("--output-file is required for export command")
	}
	if err := checkDistinctOutput(cfg.InputPath, outputPath); err != nil {
		return err
	}
	t, err := dataset.ReadTable(cfg.InputPath)
	if err != nil {
		return err
	}
	rows, err := parquet.ConvertReshapedRows(t.Header, t.Rows)
	if err != nil {
		return fmt.Errorf("cannot export %s: %w", cfg.InputPath, err)
	}
	if err := parquet.WriteReshapedRowsParquet(rows, outputPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d reshaped rows to: %s\n", len(rows), outputPath)
	return nil
}

// checkDistinctOutput rejects an output that would overwrite the input.
func checkDistinctOutput(inputPath, outputPath string) error {
	if inputPath == "" {
		return fmt.Errorf("an input dataset is required")
	}
	if outputPath == "" {
		return fmt.Errorf("an output path is required")
	}
	in, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}
	if in == out {
		return fmt.Errorf("output %q must not overwrite the input dataset", outputPath)
	}
	return nil
}
