package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// Table names for run tracking.
const (
	prepareRunsTable = "miklabel_prepare_runs"
	labelCountsTable = "miklabel_label_counts"
)

// runTables lists the run tracking tables in creation order.
var runTables = []string{prepareRunsTable, labelCountsTable}

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetRunDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables creates the run tracking tables.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		prepareRunsTable: getCreatePrepareRunsQuery(backend),
		labelCountsTable: getCreateLabelCountsQuery(backend),
	}
	for _, table := range runTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreatePrepareRunsQuery returns the CREATE TABLE query for miklabel_prepare_runs.
func getCreatePrepareRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(prepareRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				kind VARCHAR(16) NOT NULL,
				input_path VARCHAR(1024) NOT NULL,
				input_digest VARCHAR(64) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				rows_read BIGINT NOT NULL DEFAULT 0,
				rows_written BIGINT NOT NULL DEFAULT 0,
				rows_dropped BIGINT NOT NULL DEFAULT 0,
				train_rows BIGINT NOT NULL DEFAULT 0,
				validate_rows BIGINT NOT NULL DEFAULT 0,
				test_rows BIGINT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				kind TEXT NOT NULL,
				input_path TEXT NOT NULL,
				input_digest TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				rows_read BIGINT NOT NULL DEFAULT 0,
				rows_written BIGINT NOT NULL DEFAULT 0,
				rows_dropped BIGINT NOT NULL DEFAULT 0,
				train_rows BIGINT NOT NULL DEFAULT 0,
				validate_rows BIGINT NOT NULL DEFAULT 0,
				test_rows BIGINT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				input_path TEXT NOT NULL,
				input_digest TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				rows_read INTEGER NOT NULL DEFAULT 0,
				rows_written INTEGER NOT NULL DEFAULT 0,
				rows_dropped INTEGER NOT NULL DEFAULT 0,
				train_rows INTEGER NOT NULL DEFAULT 0,
				validate_rows INTEGER NOT NULL DEFAULT 0,
				test_rows INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateLabelCountsQuery returns the CREATE TABLE query for miklabel_label_counts.
func getCreateLabelCountsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(labelCountsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				partition_name VARCHAR(16) NOT NULL,
				label VARCHAR(255) NOT NULL,
				row_count BIGINT NOT NULL,
				PRIMARY KEY (run_id, partition_name, label)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				partition_name TEXT NOT NULL,
				label TEXT NOT NULL,
				row_count BIGINT NOT NULL,
				PRIMARY KEY (run_id, partition_name, label)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				partition_name TEXT NOT NULL,
				label TEXT NOT NULL,
				row_count INTEGER NOT NULL,
				PRIMARY KEY (run_id, partition_name, label)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new prepare run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, kind schema.DatasetKind, inputPath, inputDigest string, configParams map[string]any) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(prepareRunsTable, rs.backend)
	args := []any{string(kind), inputPath, inputDigest, formatTime(startTime, rs.backend), string(configJSON)}

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (kind, input_path, input_digest, start_time, config_params) VALUES ($1, $2, $3, $4, $5) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRow(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (kind, input_path, input_digest, start_time, config_params) VALUES (?, ?, ?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert prepare run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome) error {
	if rs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(prepareRunsTable, rs.backend)
	row := rs.db.QueryRow(rebind(rs.backend, fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, quotedTableName)), runID)
	startTime, err := scanTime(row, rs.backend)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, rows_read = ?, rows_written = ?, rows_dropped = ?,
		train_rows = ?, validate_rows = ?, test_rows = ? WHERE run_id = ?`, quotedTableName)
	_, err = rs.db.Exec(rebind(rs.backend, query),
		formatTime(endTime, rs.backend), endTime.Sub(startTime).Milliseconds(),
		outcome.Stats.Read, outcome.Stats.Written, outcome.Stats.Dropped(),
		outcome.Counts.Train, outcome.Counts.Validate, outcome.Counts.Test,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prepare run: %w", err)
	}
	return nil
}

// RecordLabelCounts stores the label distribution of one partition in a single transaction.
func (rs *RunStoreImpl) RecordLabelCounts(runID int64, partition schema.PartitionName, counts []schema.LabelCount) error {
	if rs.db == nil || len(counts) == 0 {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, partition_name, label, row_count) VALUES (?, ?, ?, ?)`, quoteTableName(labelCountsTable, rs.backend))
	stmt, err := tx.Prepare(rebind(rs.backend, query))
	if err != nil {
		return fmt.Errorf("failed to prepare label count insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range counts {
		if _, err := stmt.Exec(runID, string(partition), c.Label, c.Rows); err != nil {
			return fmt.Errorf("failed to insert label count %q: %w", c.Label, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(prepareRunsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		var err error
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if status.LastRunTime, err = scanTime(row, rs.backend); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns))
		if status.OldestRunTime, err = scanTime(row, rs.backend); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		row = rs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(rows_written), 0) FROM %s", quotedRuns))
		if err := row.Scan(&status.TotalRowsWritten); err != nil {
			return status, fmt.Errorf("failed to get total rows written: %w", err)
		}
	}

	for _, table := range runTables {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all prepare runs ordered by ID.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, kind, input_path, input_digest, start_time, end_time, run_duration_ms,
		rows_read, rows_written, rows_dropped, train_rows, validate_rows, test_rows, config_params
		FROM %s ORDER BY run_id`, quoteTableName(prepareRunsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query prepare runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		var start, end any
		if err := rows.Scan(&r.RunID, &r.Kind, &r.InputPath, &r.InputDigest, &start, &end, &r.RunDurationMs,
			&r.RowsRead, &r.RowsWritten, &r.RowsDropped, &r.TrainRows, &r.ValidateRows, &r.TestRows, &r.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan prepare run: %w", err)
		}
		if r.StartTime, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if end != nil {
			endTime, err := parseTime(end)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			r.EndTime = &endTime
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prepare runs: %w", err)
	}
	return results, nil
}

// GetAllLabelCounts retrieves all label counts ordered by run, partition and label.
func (rs *RunStoreImpl) GetAllLabelCounts() ([]schema.LabelCountRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, partition_name, label, row_count FROM %s ORDER BY run_id, partition_name, label`,
		quoteTableName(labelCountsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query label counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.LabelCountRecord
	for rows.Next() {
		var r schema.LabelCountRecord
		if err := rows.Scan(&r.RunID, &r.Partition, &r.Label, &r.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating label counts: %w", err)
	}
	return results, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
// SQLite has no native datetime type and stores RFC3339 text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// scanTime reads a single time column stored by formatTime.
func scanTime(row *sql.Row, backend schema.DatabaseBackend) (time.Time, error) {
	if backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

// parseTime converts a scanned time column from any backend.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value of type %T", v)
	}
}
