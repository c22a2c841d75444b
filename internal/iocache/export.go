package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/parquet"
)

// Suffixes appended to the export base path.
const (
	runsExportSuffix   = ".runs.parquet"
	labelsExportSuffix = ".labels.parquet"
)

// ExportFiles names the Parquet files written by ExportRuns.
type ExportFiles struct {
	Runs   string
	Labels string
}

// ExportRuns writes the run history of store to two Parquet files next to
// outputFile and reports progress to w.
func ExportRuns(store contract.RunStore, outputFile string, w io.Writer) (ExportFiles, error) {
	var files ExportFiles
	if outputFile == "" {
		return files, errors.New("--output-file is required for export command")
	}
	if store == nil {
		return files, errors.New("run tracking is not configured. Set --run-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return files, fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return files, errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total prepare runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total label count records: %d\n", status.TableSizes[labelCountsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return files, fmt.Errorf("failed to retrieve prepare runs: %w", err)
	}
	labels, err := store.GetAllLabelCounts()
	if err != nil {
		return files, fmt.Errorf("failed to retrieve label counts: %w", err)
	}

	files.Runs = outputFile + runsExportSuffix
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WritePrepareRunsParquet(parquetRuns, files.Runs); err != nil {
		return files, fmt.Errorf("failed to write prepare runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d prepare runs to: %s\n", len(parquetRuns), files.Runs)

	files.Labels = outputFile + labelsExportSuffix
	parquetLabels := parquet.ConvertLabelCountRecords(labels)
	if err := parquet.WriteLabelCountsParquet(parquetLabels, files.Labels); err != nil {
		return files, fmt.Errorf("failed to write label counts: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d label count records to: %s\n", len(parquetLabels), files.Labels)
	return files, nil
}
