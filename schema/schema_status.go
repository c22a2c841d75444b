package schema

import "time"

// CacheStatus represents the status of the reshape cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the prepare run store.
type RunStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalRuns        int              `json:"total_runs"`
	LastRunID        int64            `json:"last_run_id"`
	LastRunTime      time.Time        `json:"last_run_time"`
	OldestRunTime    time.Time        `json:"oldest_run_time"`
	TotalRowsWritten int64            `json:"total_rows_written"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// DataSourceStatus describes the current snapshot of the live data cache.
type DataSourceStatus struct {
	Source         string    `json:"source"`
	RepoSets       int       `json:"repo_sets"`
	PersonSets     int       `json:"person_sets"`
	RepoSetsETag   string    `json:"repo_sets_etag"`
	PersonSetsETag string    `json:"person_sets_etag"`
	LastReload     time.Time `json:"last_reload"`
}
