// Package cmd defines the command-line interface for miklabel.
package cmd

import (
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(datasourceCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the prepare subcommands to the parent prepare command
	prepareCmd.AddCommand(prepareIssuesCmd)
	prepareCmd.AddCommand(preparePrsCmd)

	// Add the dataset subcommands to the parent dataset command
	datasetCmd.AddCommand(datasetFilterCmd)
	datasetCmd.AddCommand(datasetSplitCmd)
	datasetCmd.AddCommand(datasetExportCmd)

	// Add the datasource subcommands to the parent datasource command
	datasourceCmd.AddCommand(datasourceShowCmd)
	datasourceCmd.AddCommand(datasourceWatchCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of labels or tokens to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Reshape cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("run-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for run tracking")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Diagnostic log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("datasource-dir", "", "Directory holding the repo set and person set documents")
	rootCmd.PersistentFlags().String("datasource-url", "", "Base URL serving the repo set and person set documents")
	rootCmd.PersistentFlags().Duration("reload-debounce", contract.DefaultReloadDebounce, "Quiet period before reloading changed documents")
	rootCmd.PersistentFlags().Duration("reload-interval", 0, "Polling interval for --datasource-url (0 = load once)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all persistent flags of prepareCmd to Viper
	prepareCmd.PersistentFlags().String("train", "", "Train partition path (default: <input>-<kind>-train.tsv)")
	prepareCmd.PersistentFlags().String("validate", "", "Validate partition path (default: <input>-<kind>-validate.tsv)")
	prepareCmd.PersistentFlags().String("test", "", "Test partition path (default: <input>-<kind>-test.tsv)")
	prepareCmd.PersistentFlags().String("reshaped", "", "Optional path to also write the reshaped, filtered table")
	prepareCmd.PersistentFlags().String("unmapped-label", string(schema.DropPolicy), "Rows whose label remaps to nothing: drop or fail or default")
	prepareCmd.PersistentFlags().String("malformed", string(schema.FailPolicy), "Rows with too few fields or a bad IsPR flag: drop or fail")
	prepareCmd.PersistentFlags().String("empty-files", string(schema.DefaultPolicy), "Pull requests without changed files: drop or fail or default")
	prepareCmd.PersistentFlags().String("default-label", "", "Label used by --unmapped-label default")
	if err := viper.BindPFlags(prepareCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding prepare flags", err)
	}

	// Bind all flags of datasourceWatchCmd to Viper
	datasourceWatchCmd.Flags().String("metrics-addr", "", "Address serving /metrics, /healthz and /readyz (e.g., :9090)")
	if err := viper.BindPFlags(datasourceWatchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding datasource watch flags", err)
	}

	// Local flags that are read straight from the command, not from Viper
	segmentCmd.Flags().String("source-repo", "", "Repository the paths come from, used by file remap rules")
	datasetFilterCmd.Flags().String("kind", string(schema.IssuesKind), "Rows to keep: issues or prs")
	datasetSplitCmd.Flags().String("train", "", "Train partition path (default: <input>-train.tsv)")
	datasetSplitCmd.Flags().String("validate", "", "Validate partition path (default: <input>-validate.tsv)")
	datasetSplitCmd.Flags().String("test", "", "Test partition path (default: <input>-test.tsv)")

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
