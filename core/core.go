// Package core has core logic for preparing label training datasets.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/core/remap"
	"github.com/huangsam/miklabel/core/segment"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/observability"
	"github.com/huangsam/miklabel/internal/outwriter"
	"github.com/huangsam/miklabel/schema"
)

// ExecutorFunc defines the function signature for executing a command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecutePrepare builds the train, validate and test files for cfg.Kind and
// prints a summary. It serves as the main entry point for 'prepare'.
func ExecutePrepare(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	summary, err := GetPrepareResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintPrepareSummary(summary, cfg, time.Since(start))
}

// GetPrepareResults runs the dataset pipeline and returns its summary without printing:
// reshape (through the reshape cache), filter by kind, optionally write the
// reshaped table, partition, then record the run.
func GetPrepareResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.PrepareSummary, error) {
	start := time.Now()
	if cfg.InputPath == "" {
		return schema.PrepareSummary{}, fmt.Errorf("an input dataset is required")
	}

	// --- 0. Configuration, validated before any input is read ---
	rules, err := remap.New(cfg.Remap)
	if err != nil {
		return schema.PrepareSummary{}, fmt.Errorf("invalid remap rules: %w", err)
	}
	logger := loggerFrom(ctx)
	reshaper, err := dataset.NewReshaper(segment.New(), dataset.Options{
		Kind:         cfg.Kind,
		RemapLabel:   rules.LabelFunc(),
		RemapFiles:   rules.FileFunc(),
		Policies:     cfg.Policies,
		DefaultLabel: cfg.DefaultLabel,
	}, logger)
	if err != nil {
		return schema.PrepareSummary{}, err
	}

	if !shouldSuppressHeader(ctx) {
		outwriter.LogPrepareHeader(cfg)
	}

	digest, err := digestFile(cfg.InputPath)
	if err != nil {
		return schema.PrepareSummary{}, fmt.Errorf("cannot read input dataset: %w", err)
	}

	// --- 1. Reshape Phase (with caching) ---
	key := generateCacheKey(cfg, digest, rules.Fingerprint())
	reshaped, stats, hit, err := reshapeWithCache(ctx, mgr.GetReshapeStore(), reshaper, cfg.InputPath, key)
	if err != nil {
		return schema.PrepareSummary{}, err
	}
	if !hit {
		observability.Default().ObserveReshape(cfg.Kind, stats)
	}
	logger.Info("reshaped input", "path", cfg.InputPath, "cache_hit", hit, "written", stats.Written, "dropped", stats.Dropped())

	// --- 2. Filter by kind ---
	filtered, err := dataset.FilterKind(reshaped, cfg.Kind)
	if err != nil {
		return schema.PrepareSummary{}, err
	}
	if cfg.ReshapedPath != "" {
		if err := dataset.WriteTable(cfg.ReshapedPath, filtered); err != nil {
			return schema.PrepareSummary{}, err
		}
	}

	// --- 3. Partition ---
	parts, err := dataset.Split(filtered)
	if err != nil {
		return schema.PrepareSummary{}, err
	}
	partitions, err := dataset.WritePartitions(parts, cfg.Partitions)
	if err != nil {
		return schema.PrepareSummary{}, err
	}

	summary := schema.PrepareSummary{
		Kind:         cfg.Kind,
		InputPath:    cfg.InputPath,
		InputDigest:  digest,
		ReshapedPath: cfg.ReshapedPath,
		CacheHit:     hit,
		Stats:        stats,
		FilteredRows: filtered.Len(),
		Counts:       parts.Counts(),
		Partitions:   partitions,
	}

	// --- 4. Run Tracking (if configured) ---
	// Runs are only recorded once every file is written, so failed prepares
	// never leave an unfinished run behind.
	if runStore := mgr.GetRunStore(); runStore != nil {
		configParams := map[string]any{
			"kind":             string(cfg.Kind),
			"policies":         cfg.Policies,
			"default_label":    cfg.DefaultLabel,
			"remap":            rules.Fingerprint(),
			"train_path":       cfg.Partitions.Train,
			"validate_path":    cfg.Partitions.Validate,
			"test_path":        cfg.Partitions.Test,
			"reshaped_path":    cfg.ReshapedPath,
			"target_label_cnt": len(rules.TargetLabels()),
		}
		runID, err := runStore.BeginRun(start, cfg.Kind, cfg.InputPath, digest, configParams)
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else {
			summary.RunID = runID
			recordRun(runStore, runID, summary)
		}
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// recordRun stores the outcome and label distribution of a finished run.
// Failures only warn: the dataset files are already written.
func recordRun(store contract.RunStore, runID int64, summary schema.PrepareSummary) {
	for _, p := range summary.Partitions {
		if err := store.RecordLabelCounts(runID, p.Name, p.Labels); err != nil {
			contract.LogWarn("Failed to record label counts", err)
		}
	}
	outcome := schema.RunOutcome{Stats: summary.Stats, Counts: summary.Counts}
	if err := store.EndRun(runID, time.Now(), outcome); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
