package cmd

import (
	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/spf13/cobra"
)

// prepareSetup validates the config for one dataset kind and opens the stores.
func prepareSetup(kind schema.DatasetKind) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		err := sharedSetup(rootCtx, func(in *contract.ConfigRawInput) {
			in.KindStr = string(kind)
			in.InputPathStr = args[0]
		})
		if err != nil {
			return err
		}
		return storeSetup()
	}
}

// prepareCmd groups the dataset preparation commands.
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build train, validate and test files from a raw export.",
	Long: `Reshape a raw issue and pull request export and split it into training files.

The raw export is a tab-separated file with the columns
CombinedID, ID, Area, Title, Description, Author, IsPR and FilePaths.

Each run:
- Remaps area labels and file paths with the rules in the config file
- Extracts @user mentions and, for pull requests, segments the changed files
- Keeps only rows of the requested kind
- Writes the first 80% of rows to train, the next 10% to validate and the rest to test

Reshaped tables are cached by input digest and options, so repeated runs over
the same export skip the reshape.

Examples:
  # Prepare issue files next to the export
  miklabel prepare issues data/export.tsv

  # Prepare pull request files and keep the reshaped table
  miklabel prepare prs data/export.tsv --reshaped data/prs-reshaped.tsv

  # Fail on any unmapped label instead of dropping the row
  miklabel prepare issues data/export.tsv --unmapped-label fail`,
}

// prepareIssuesCmd prepares the issue dataset.
var prepareIssuesCmd = &cobra.Command{
	Use:   "issues <input.tsv>",
	Short: "Prepare the issue dataset.",
	Long: `Prepare train, validate and test files containing only issues.

Issue rows carry the mention columns but no file columns.

Examples:
  miklabel prepare issues data/export.tsv
  miklabel prepare issues data/export.tsv --output json --output-file summary.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: prepareSetup(schema.IssuesKind),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePrepare(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot prepare issues", err)
		}
	},
}

// preparePrsCmd prepares the pull request dataset.
var preparePrsCmd = &cobra.Command{
	Use:   "prs <input.tsv>",
	Short: "Prepare the pull request dataset.",
	Long: `Prepare train, validate and test files containing only pull requests.

Pull request rows also carry the changed files and their filename, extension,
folder name and folder groupings.

Examples:
  miklabel prepare prs data/export.tsv
  miklabel prepare prs data/export.tsv --empty-files drop`,
	Args:    cobra.ExactArgs(1),
	PreRunE: prepareSetup(schema.PrsKind),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePrepare(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot prepare pull requests", err)
		}
	},
}
