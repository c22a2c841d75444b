// Package parquet provides data structures and functions for exporting prepared
// datasets and prepare run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/miklabel/schema"
	"github.com/parquet-go/parquet-go"
)

// PrepareRun represents a single dataset prepare run with metadata.
// This struct maps to the miklabel_prepare_runs database table.
type PrepareRun struct {
	// RunID is the unique identifier for this prepare run
	RunID int64 `parquet:"run_id,snappy"`

	// Kind is the dataset kind (issues or prs)
	Kind string `parquet:"kind,snappy"`

	// InputPath is the raw export the run read
	InputPath string `parquet:"input_path,snappy"`

	// InputDigest is the blake3 digest of the raw export
	InputDigest string `parquet:"input_digest,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	RowsRead     int64 `parquet:"rows_read,snappy"`
	RowsWritten  int64 `parquet:"rows_written,snappy"`
	RowsDropped  int64 `parquet:"rows_dropped,snappy"`
	TrainRows    int64 `parquet:"train_rows,snappy"`
	ValidateRows int64 `parquet:"validate_rows,snappy"`
	TestRows     int64 `parquet:"test_rows,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// LabelCount is the number of rows of one label in one partition of a run.
// This struct maps to the miklabel_label_counts database table.
type LabelCount struct {
	RunID     int64  `parquet:"run_id,snappy"`
	Partition string `parquet:"partition,snappy"`
	Label     string `parquet:"label,snappy"`
	Rows      int64  `parquet:"rows,snappy"`
}

// ReshapedRow is one row of a reshaped dataset. File columns are only set
// for pull request datasets.
type ReshapedRow struct {
	CombinedID     string  `parquet:"combined_id,snappy"`
	ID             string  `parquet:"id,snappy"`
	Area           string  `parquet:"area,snappy,dict"`
	Title          string  `parquet:"title,snappy"`
	Description    string  `parquet:"description,snappy"`
	Author         string  `parquet:"author,snappy,dict"`
	IsPR           bool    `parquet:"is_pr"`
	NumMentions    int32   `parquet:"num_mentions"`
	UserMentions   string  `parquet:"user_mentions,snappy"`
	FileCount      *int32  `parquet:"file_count,optional"`
	Files          *string `parquet:"files,optional,snappy"`
	Filenames      *string `parquet:"filenames,optional,snappy"`
	FileExtensions *string `parquet:"file_extensions,optional,snappy"`
	FolderNames    *string `parquet:"folder_names,optional,snappy"`
	Folders        *string `parquet:"folders,optional,snappy"`
}

// WritePrepareRunsParquet writes a slice of PrepareRun structs to a Parquet file.
func WritePrepareRunsParquet(data []PrepareRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteLabelCountsParquet writes a slice of LabelCount structs to a Parquet file.
func WriteLabelCountsParquet(data []LabelCount, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteReshapedRowsParquet writes a slice of ReshapedRow structs to a Parquet file.
func WriteReshapedRowsParquet(data []ReshapedRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet creates outputPath and writes data with a schema inferred from T.
func writeParquet[T any](data []T, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts schema.RunRecord to PrepareRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []PrepareRun {
	result := make([]PrepareRun, len(records))
	for i, record := range records {
		result[i] = PrepareRun{
			RunID:         record.RunID,
			Kind:          record.Kind,
			InputPath:     record.InputPath,
			InputDigest:   record.InputDigest,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			RowsRead:      record.RowsRead,
			RowsWritten:   record.RowsWritten,
			RowsDropped:   record.RowsDropped,
			TrainRows:     record.TrainRows,
			ValidateRows:  record.ValidateRows,
			TestRows:      record.TestRows,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertLabelCountRecords converts schema.LabelCountRecord to LabelCount for Parquet export.
func ConvertLabelCountRecords(records []schema.LabelCountRecord) []LabelCount {
	result := make([]LabelCount, len(records))
	for i, record := range records {
		result[i] = LabelCount(record)
	}
	return result
}

// ConvertReshapedRows converts reshaped TSV rows to ReshapedRow. The header
// decides whether file columns are present.
func ConvertReshapedRows(header []string, rows [][]string) ([]ReshapedRow, error) {
	withFiles := len(header) == len(schema.ReshapedHeader(schema.PrsKind))
	if !withFiles && len(header) != len(schema.ReshapedHeader(schema.IssuesKind)) {
		return nil, fmt.Errorf("unexpected reshaped header with %d columns", len(header))
	}

	result := make([]ReshapedRow, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+1, len(header), len(row))
		}
		mentions, err := strconv.Atoi(row[7])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", i+1, schema.ColNumMentions, err)
		}
		r := ReshapedRow{
			CombinedID:   row[schema.CombinedIDIndex],
			ID:           row[schema.IDIndex],
			Area:         row[schema.AreaIndex],
			Title:        row[schema.TitleIndex],
			Description:  row[schema.DescriptionIndex],
			Author:       row[schema.AuthorIndex],
			IsPR:         row[schema.IsPRIndex] == "1",
			NumMentions:  int32(mentions),
			UserMentions: row[8],
		}
		if withFiles {
			count, err := strconv.Atoi(row[9])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid %s: %w", i+1, schema.ColFileCount, err)
			}
			fc := int32(count)
			r.FileCount = &fc
			r.Files, r.Filenames, r.FileExtensions = &row[10], &row[11], &row[12]
			r.FolderNames, r.Folders = &row[13], &row[14]
		}
		result = append(result, r)
	}
	return result, nil
}
