package schema

import "time"

// RunRecord represents a row from the miklabel_prepare_runs table.
type RunRecord struct {
	RunID         int64
	Kind          string
	InputPath     string
	InputDigest   string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	RowsRead      int64
	RowsWritten   int64
	RowsDropped   int64
	TrainRows     int64
	ValidateRows  int64
	TestRows      int64
	ConfigParams  *string
}

// LabelCountRecord represents a row from the miklabel_label_counts table.
type LabelCountRecord struct {
	RunID     int64
	Partition string
	Label     string
	Rows      int64
}

// RunOutcome is what a finished prepare run reports back to the run store.
type RunOutcome struct {
	Stats  ReshapeStats
	Counts PartitionCounts
}
