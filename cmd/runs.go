package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/iocache"
	"github.com/huangsam/miklabel/internal/outwriter"
	"github.com/huangsam/miklabel/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runBackendFromConfig resolves the run tracking backend. Empty means disabled.
func runBackendFromConfig() (schema.DatabaseBackend, string, error) {
	backend := schema.DatabaseBackend(viper.GetString("run-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("run-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// runsSetup loads minimal configuration needed for run history operations.
func runsSetup() error {
	if err := loadConfig(); err != nil {
		return err
	}
	backend, connStr, err := runBackendFromConfig()
	if err != nil {
		return err
	}

	// Reshape caching stays disabled for runs commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run tracking: %w", err)
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup loads the config for migrations without opening the stores,
// so migrations can run against a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	backend, connStr, err := runBackendFromConfig()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunDBFilePath()
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsCmd focused on prepare run history.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage prepare run history and exports",
	Long: `Manage the history of prepare runs.

When --run-backend is set, every prepare run records:
- Run metadata (kind, input, digest, options, duration, outcome)
- Row counts per partition
- Label counts per partition

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show run tracking statistics
  export  - Export run history to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  miklabel runs status --run-backend sqlite
  miklabel runs export --run-backend sqlite --output-file runs`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all prepare run history",
	Long: `Delete all stored prepare runs and label counts.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  miklabel runs export --output-file backup
  miklabel runs clear`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := contract.GetRunDBFilePath()
		if cfg.RunBackend == schema.SQLiteBackend && cfg.RunDBConnect != "" {
			dbFilePath = cfg.RunDBConnect
		}
		if err := iocache.ClearRuns(cfg.RunBackend, dbFilePath, cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run tracking status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show the backend, run count, newest and oldest runs, rows written
and table sizes of the run history.

Examples:
  miklabel runs status
  miklabel runs status --output json`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetRunStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		if err := outwriter.PrintRunStatus(status, cfg); err != nil {
			contract.LogFatal("Failed to print run status", err)
		}
	},
}

// runsExportCmd exports the run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for analytics",
	Long: `Export all stored prepare runs and label counts to Parquet.

Two files are written next to --output-file:
- <output-file>.runs.parquet   - one row per prepare run
- <output-file>.labels.parquet - one row per run, partition and label

Requires: --output-file parameter

Examples:
  miklabel runs export --output-file history
  duckdb -c "SELECT Label, sum(Rows) FROM read_parquet('history.labels.parquet') GROUP BY Label"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if _, err := iocache.ExportRuns(iocache.Manager.GetRunStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  miklabel runs migrate --run-backend sqlite

  # Rollback to initial state
  miklabel runs migrate --run-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		result, err := iocache.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to migrate run store", err)
		}
		fmt.Println(result.String())
	},
}
