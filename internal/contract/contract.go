// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/miklabel/schema"
)

// DiffSegmenter groups the changed paths of a pull request.
// This allows the reshaper to be tested with a fake segmenter.
type DiffSegmenter interface {
	Segment(paths []string) schema.SegmentedDiff
}

// LabelRemapFunc maps (area, source repository) to the label used for training.
// A blank result means the row has no usable label.
type LabelRemapFunc func(area, sourceRepo string) string

// FileRemapFunc rewrites the changed paths of a row before segmentation.
type FileRemapFunc func(paths []string, sourceRepo string) []string

// ContentProvider fetches a named document for the live data cache.
// When etag matches the current content, the result has Changed set to false.
type ContentProvider interface {
	Read(ctx context.Context, name, etag string) (schema.ContentResult, error)
}

// CacheManager defines the interface for managing stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetReshapeStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking prepare runs and their label counts.
type RunStore interface {
	// BeginRun creates a new prepare run and returns its unique ID
	BeginRun(startTime time.Time, kind schema.DatasetKind, inputPath, inputDigest string, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome) error

	// RecordLabelCounts stores the label distribution of one partition
	RecordLabelCounts(runID int64, partition schema.PartitionName, counts []schema.LabelCount) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every recorded run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllLabelCounts returns every recorded label count ordered by run, partition and label
	GetAllLabelCounts() ([]schema.LabelCountRecord, error)

	// Close closes the underlying connection
	Close() error
}
