package cmd

import (
	"fmt"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/iocache"
	"github.com/huangsam/miklabel/internal/outwriter"
	"github.com/huangsam/miklabel/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig reads the config file without the full validation of sharedSetup.
// Output settings are copied so status commands honor --output and --output-file.
func loadConfig() error {
	setConfigSource()
	if err := readConfigFile(); err != nil {
		return err
	}
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Precision = viper.GetInt("precision")
	return nil
}

// cacheSetup loads minimal configuration needed for cache operations.
func cacheSetup() error {
	if err := loadConfig(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Run tracking stays disabled for cache commands
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on reshape cache management.
//
// Note: Cache subcommands skip sharedSetup since they have no input file.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the reshape cache (speeds up repeated prepares)",
	Long: `Manage the cache of reshaped tables.

Miklabel caches the reshaped table of an export, keyed by the export's digest,
the dataset kind, the row policies and the remap rules. Preparing the same
export twice only pays for the reshape once.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  miklabel cache status

  # Clear cache after editing the export in place
  miklabel cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached reshaped tables",
	Long: `Delete all cached reshaped tables from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  miklabel cache clear

  # Clear MySQL cache (set connection string via env variable)
  MIKLABEL_CACHE_BACKEND=mysql MIKLABEL_CACHE_DB_CONNECT="..." miklabel cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := contract.GetCacheDBFilePath()
		if cfg.CacheBackend == schema.SQLiteBackend && cfg.CacheDBConnect != "" {
			dbFilePath = cfg.CacheDBConnect
		}
		if err := iocache.ClearCache(cfg.CacheBackend, dbFilePath, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, entry count, newest and oldest entries and table size
of the reshape cache.

Examples:
  miklabel cache status
  miklabel cache status --output json`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetReshapeStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", fmt.Errorf("cache backend %q is not enabled", cfg.CacheBackend))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		if err := outwriter.PrintCacheStatus(status, cfg); err != nil {
			contract.LogFatal("Failed to print cache status", err)
		}
	},
}
