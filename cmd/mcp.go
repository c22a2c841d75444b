package cmd

import (
	"github.com/huangsam/miklabel/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the miklabel MCP server",
	Long: `Launch an MCP server over stdio so AI agents can segment paths, extract
mentions, remap labels, look up repo and person sets and prepare datasets.

Diagnostics go to stderr since stdout carries the protocol.

Examples:
  miklabel mcp --datasource-dir ./datasets`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if err := sharedSetup(rootCtx, nil); err != nil {
			return err
		}
		return storeSetup()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
