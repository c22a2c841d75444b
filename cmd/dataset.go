package cmd

import (
	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/spf13/cobra"
)

// datasetCmd groups the commands working on already reshaped tables.
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Filter, split or export reshaped tables.",
	Long: `Work with reshaped tables, such as the one written by 'prepare --reshaped'.

Subcommands:
  filter - Keep only issue or pull request rows
  split  - Write the 80/10/10 train, validate and test partitions
  export - Convert a reshaped table to Parquet`,
}

// datasetFilterCmd keeps the rows of one kind.
var datasetFilterCmd = &cobra.Command{
	Use:   "filter <input.tsv> <output.tsv>",
	Short: "Keep only issue or pull request rows of a reshaped table.",
	Long: `Keep the rows whose IsPR flag matches --kind. Rows with a missing or
non-numeric flag are excluded. The output must differ from the input.

Examples:
  miklabel dataset filter reshaped.tsv issues.tsv --kind issues`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		return sharedSetup(rootCtx, func(in *contract.ConfigRawInput) {
			in.KindStr = kind
			in.InputPathStr = args[0]
		})
	},
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteDatasetFilter(rootCtx, cfg, args[1]); err != nil {
			contract.LogFatal("Cannot filter dataset", err)
		}
	},
}

// datasetSplitCmd partitions a reshaped table.
var datasetSplitCmd = &cobra.Command{
	Use:   "split <input.tsv>",
	Short: "Split a reshaped table into train, validate and test files.",
	Long: `Assign the first 80% of rows to train, the next 10% to validate and the
remainder to test. Rows are not shuffled. At least 1000 rows are required.

Examples:
  miklabel dataset split issues.tsv
  miklabel dataset split issues.tsv --train out/train.tsv --validate out/validate.tsv --test out/test.tsv`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		train, _ := cmd.Flags().GetString("train")
		validate, _ := cmd.Flags().GetString("validate")
		test, _ := cmd.Flags().GetString("test")
		return sharedSetup(rootCtx, func(in *contract.ConfigRawInput) {
			in.InputPathStr = args[0]
			in.Train, in.Validate, in.Test = train, validate, test
		})
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDatasetSplit(rootCtx, cfg); err != nil {
			contract.LogFatal("Cannot split dataset", err)
		}
	},
}

// datasetExportCmd converts a reshaped table to Parquet.
var datasetExportCmd = &cobra.Command{
	Use:   "export <input.tsv> <output.parquet>",
	Short: "Export a reshaped table to Parquet for analytics.",
	Long: `Convert a reshaped issue or pull request table to a Parquet file.

Pull request tables keep their file columns; issue tables leave them null.

Examples:
  miklabel dataset export prs.tsv prs.parquet
  duckdb -c "SELECT Area, count(*) FROM read_parquet('prs.parquet') GROUP BY Area"`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(_ *cobra.Command, args []string) error {
		return sharedSetup(rootCtx, func(in *contract.ConfigRawInput) {
			in.InputPathStr = args[0]
		})
	},
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteDatasetExport(rootCtx, cfg, args[1]); err != nil {
			contract.LogFatal("Cannot export dataset", err)
		}
	},
}
