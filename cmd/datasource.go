package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/spf13/cobra"
)

// datasourceCmd groups the commands for repo set and person set documents.
var datasourceCmd = &cobra.Command{
	Use:   "datasource",
	Short: "Inspect or watch the repo set and person set documents.",
	Long: `Load the repo set and person set documents from --datasource-dir or
--datasource-url.

A directory holds repoSets.json and personSets.json. A URL serves the same
two documents under its base path. Both documents are checked against their
JSON schema before they replace the loaded copy.

Subcommands:
  show  - Print the loaded documents once
  watch - Keep the documents loaded and reload them on change`,
}

// datasourceShowCmd prints one view of the loaded documents.
var datasourceShowCmd = &cobra.Command{
	Use:   "show [status|repo-sets|repo-set <name>|person-sets|person-set <name>]",
	Short: "Print the loaded repo sets, person sets or load status.",
	Long: `Load the documents once and print the requested view. The default view is status.

Examples:
  miklabel datasource show --datasource-dir ./datasets
  miklabel datasource show repo-sets --datasource-dir ./datasets
  miklabel datasource show person-set dotnet-area-owners --datasource-url https://example.org/datasets`,
	Args: cobra.RangeArgs(0, 2),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return sharedSetup(rootCtx, nil)
	},
	Run: func(_ *cobra.Command, args []string) {
		view := core.ViewStatus
		var name string
		if len(args) > 0 {
			view = core.DataSourceView(args[0])
		}
		if len(args) > 1 {
			name = args[1]
		}
		if (view == core.ViewRepoSet || view == core.ViewPersonSet) && name == "" {
			contract.LogFatal("Cannot show data source", fmt.Errorf("view %s needs a name", view))
		}
		if err := core.ExecuteDataSourceShow(rootCtx, cfg, view, name); err != nil {
			contract.LogFatal("Cannot show data source", err)
		}
	},
}

// datasourceWatchCmd keeps the documents loaded until interrupted.
var datasourceWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the documents whenever they change.",
	Long: `Keep the repo set and person set documents loaded until interrupted.

A directory source is watched for file changes, debounced by --reload-debounce.
A URL source is polled every --reload-interval. A failed reload keeps the last
good documents.

With --metrics-addr the command also serves Prometheus metrics on /metrics,
liveness on /healthz and readiness on /readyz.

Examples:
  miklabel datasource watch --datasource-dir ./datasets --metrics-addr :9090
  miklabel datasource watch --datasource-url https://example.org/datasets --reload-interval 5m`,
	Args: cobra.NoArgs,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return sharedSetup(rootCtx, nil)
	},
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := core.ExecuteDataSourceWatch(ctx, cfg); err != nil {
			contract.LogFatal("Cannot watch data source", err)
		}
	},
}
