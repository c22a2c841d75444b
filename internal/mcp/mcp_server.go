// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DataSource is the read side of the live data cache used by the data tools.
type DataSource interface {
	RepoDataSet() *schema.RepoDataSet
	PersonSet(name string) (schema.PersonSet, bool)
	PersonSetNames() []string
}

// NewMCPServer initializes and configures the miklabel MCP server without starting it.
// ds may be nil, in which case the repo set and person set tools report an error.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, ds DataSource) *server.MCPServer {
	s := server.NewMCPServer(
		"Miklabel Dataset Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		ds:      ds,
	}

	// --- 1. Tool: segment_diff ---
	s.AddTool(mcp.NewTool("segment_diff",
		mcp.WithDescription("Split changed file paths into filename, extension, folder name and folder groupings."),
		mcp.WithArray("paths", mcp.Description("Changed file paths, forward or backslash separated."), mcp.Required(), mcp.WithStringItems()),
		mcp.WithString("source_repo", mcp.Description("Repository the paths come from, used by file remap rules.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of tokens per grouping.")),
	), h.handleSegmentDiff)

	// --- 2. Tool: extract_mentions ---
	s.AddTool(mcp.NewTool("extract_mentions",
		mcp.WithDescription("Extract @user mentions from an issue or pull request body."),
		mcp.WithString("text", mcp.Description("The text to scan."), mcp.Required()),
	), h.handleExtractMentions)

	// --- 3. Tool: remap_label ---
	s.AddTool(mcp.NewTool("remap_label",
		mcp.WithDescription("Apply the configured label remap rules to one area label."),
		mcp.WithString("label", mcp.Description("The original area label."), mcp.Required()),
		mcp.WithString("source_repo", mcp.Description("Repository the labeled item comes from.")),
	), h.handleRemapLabel)

	// --- 4. Tool: list_repo_sets ---
	s.AddTool(mcp.NewTool("list_repo_sets",
		mcp.WithDescription("List the loaded repo sets with their repository counts."),
	), h.handleListRepoSets)

	// --- 5. Tool: get_repo_set ---
	s.AddTool(mcp.NewTool("get_repo_set",
		mcp.WithDescription("Get one repo set with its repositories, inclusion levels and working labels."),
		mcp.WithString("name", mcp.Description("Name of the repo set."), mcp.Required()),
	), h.handleGetRepoSet)

	// --- 6. Tool: get_person_set ---
	s.AddTool(mcp.NewTool("get_person_set",
		mcp.WithDescription("Get the resolved members of one person set, imports included."),
		mcp.WithString("name", mcp.Description("Name of the person set."), mcp.Required()),
	), h.handleGetPersonSet)

	// --- 7. Tool: prepare_dataset ---
	s.AddTool(mcp.NewTool("prepare_dataset",
		mcp.WithDescription("Reshape a raw issue or pull request TSV and split it into train, validate and test files."),
		mcp.WithString("input_path", mcp.Description("Path to the raw TSV (defaults to the configured input).")),
		mcp.WithString("kind", mcp.Description("Dataset kind. Defaults to the configured kind."), mcp.Enum(string(schema.IssuesKind), string(schema.PrsKind))),
		mcp.WithNumber("limit", mcp.Description("Limit the number of labels in the distribution.")),
	), h.handlePrepareDataset)

	return s
}

// StartMCPServer starts the miklabel MCP server on stdio. When a data source
// is configured it is loaded first and kept fresh in the background.
func StartMCPServer(ctx context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	var ds DataSource
	if baseCfg.DataSourceDir != "" || baseCfg.DataSourceURL != "" {
		live, err := core.NewDataSource(ctx, baseCfg)
		if err != nil {
			return err
		}
		if err := live.Reload(ctx); err != nil {
			contract.LogWarn("Initial data source load failed", err)
		}
		switch {
		case baseCfg.DataSourceDir != "":
			go func() { _ = live.Watch(ctx, baseCfg.DataSourceDir, baseCfg.ReloadDebounce) }()
		case baseCfg.ReloadInterval > 0:
			go func() { _ = live.Poll(ctx, baseCfg.ReloadInterval) }()
		}
		ds = live
	}
	s := NewMCPServer(baseCfg, mgr, ds)
	return server.ServeStdio(s)
}
