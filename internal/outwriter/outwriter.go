// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WritePrepare prints a prepare summary using the configured output format.
func (ow *OutWriter) WritePrepare(summary schema.PrepareSummary, cfg *contract.Config, duration time.Duration) error {
	return PrintPrepareSummary(summary, cfg, duration)
}

// WriteSegments prints a segmented diff using the configured output format.
func (ow *OutWriter) WriteSegments(diff schema.SegmentedDiff, cfg *contract.Config) error {
	return PrintSegments(diff, cfg)
}

// WriteRepoSets prints every repo set using the configured output format.
func (ow *OutWriter) WriteRepoSets(ds *schema.RepoDataSet, cfg *contract.Config) error {
	return PrintRepoSets(ds, cfg)
}

// WritePersonSets prints the given person sets using the configured output format.
func (ow *OutWriter) WritePersonSets(sets map[string]schema.PersonSet, cfg *contract.Config) error {
	return PrintPersonSets(sets, cfg)
}

// LogPrepareHeader prints a concise, 2-line header before a prepare run.
func LogPrepareHeader(cfg *contract.Config) {
	name := filepath.Base(cfg.InputPath)
	if name == "" || name == "." {
		name = "stdin"
	}

	// Line 1: The input and the dataset kind
	fmt.Printf("🏷️  Input: %s (Kind: %s)\n", name, cfg.Kind)

	// Line 2: Where the partitions go
	fmt.Printf("📂 Output: %s | %s | %s\n",
		filepath.Base(cfg.Partitions.Train),
		filepath.Base(cfg.Partitions.Validate),
		filepath.Base(cfg.Partitions.Test))
}
