package cmd

import (
	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/spf13/cobra"
)

// segmentCmd segments changed file paths the way prepare does for pull requests.
var segmentCmd = &cobra.Command{
	Use:   "segment <path>...",
	Short: "Show the filename, extension and folder groupings of changed paths.",
	Long: `Segment changed file paths into the four groupings used as pull request features.

Useful for:
- Checking what a pull request contributes to the model
- Trying file remap rules before a full prepare

Examples:
  miklabel segment src/Mvc/Controller.cs src/Mvc/View.cshtml docs/readme.md

  # Apply the file remap rules of one repository
  miklabel segment src/Controller.cs --source-repo mvc`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return sharedSetup(rootCtx, nil)
	},
	Run: func(cmd *cobra.Command, args []string) {
		sourceRepo, _ := cmd.Flags().GetString("source-repo")
		if err := core.ExecuteSegment(rootCtx, cfg, args, sourceRepo); err != nil {
			contract.LogFatal("Cannot segment paths", err)
		}
	},
}
