package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/miklabel/core"
	"github.com/huangsam/miklabel/core/algo"
	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/core/remap"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	ds      DataSource
}

// repoSetEntry is one row of list_repo_sets.
type repoSetEntry struct {
	Name          string `json:"name"`
	PersonSet     string `json:"person_set,omitempty"`
	Repos         int    `json:"repos"`
	WorkingLabels int    `json:"working_labels"`
}

// remapResult is the answer of remap_label. Dropped is set when the rules
// map the label to nothing.
type remapResult struct {
	Label      string `json:"label"`
	SourceRepo string `json:"source_repo,omitempty"`
	Remapped   string `json:"remapped"`
	Dropped    bool   `json:"dropped"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSegmentDiff(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := request.GetStringSlice("paths", nil)
	if len(paths) == 0 {
		return mcp.NewToolResultError("paths must contain at least one file path"), nil
	}
	limit := request.GetInt("limit", h.baseCfg.ResultLimit)

	diff, err := core.GetSegments(h.baseCfg, paths, request.GetString("source_repo", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("segmentation failed: %v", err)), nil
	}
	return jsonResult(map[string][]schema.TokenCount{
		"filenames":    algo.RankTokens(diff.Filenames.Entries(), limit),
		"extensions":   algo.RankTokens(diff.Extensions.Entries(), limit),
		"folder_names": algo.RankTokens(diff.FolderNames.Entries(), limit),
		"folders":      algo.RankTokens(diff.Folders.Entries(), limit),
	})
}

func (h *toolHandler) handleExtractMentions(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mentions := dataset.ExtractMentions(request.GetString("text", ""))
	if mentions == nil {
		mentions = []string{}
	}
	return jsonResult(mentions)
}

func (h *toolHandler) handleRemapLabel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := request.RequireString("label")
	if err != nil || label == "" {
		return mcp.NewToolResultError("label is required"), nil
	}
	rules, err := remap.New(h.baseCfg.Remap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid remap rules: %v", err)), nil
	}
	repo := request.GetString("source_repo", "")
	remapped := rules.Label(label, repo)
	return jsonResult(remapResult{Label: label, SourceRepo: repo, Remapped: remapped, Dropped: remapped == ""})
}

func (h *toolHandler) handleListRepoSets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.ds == nil {
		return mcp.NewToolResultError("no data source configured"), nil
	}
	sets := h.ds.RepoDataSet()
	entries := make([]repoSetEntry, 0, sets.Len())
	for _, name := range sets.RepoSetNames() {
		def, _ := sets.RepoSet(name)
		entries = append(entries, repoSetEntry{
			Name:          name,
			PersonSet:     def.AssociatedPersonSetName,
			Repos:         len(def.Repos),
			WorkingLabels: len(def.WorkingLabels),
		})
	}
	return jsonResult(entries)
}

func (h *toolHandler) handleGetRepoSet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.ds == nil {
		return mcp.NewToolResultError("no data source configured"), nil
	}
	name := request.GetString("name", "")
	def, ok := h.ds.RepoDataSet().RepoSet(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("repo set %q not found", name)), nil
	}
	return jsonResult(def)
}

func (h *toolHandler) handleGetPersonSet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.ds == nil {
		return mcp.NewToolResultError("no data source configured"), nil
	}
	name := request.GetString("name", "")
	set, ok := h.ds.PersonSet(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("person set %q not found", name)), nil
	}
	return jsonResult(set)
}

func (h *toolHandler) handlePrepareDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if k := request.GetString("kind", ""); k != "" {
		kind := schema.DatasetKind(k)
		if _, ok := schema.ValidDatasetKinds[kind]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q. must be issues or prs", k)), nil
		}
		cfg.Kind = kind
	}
	if p := request.GetString("input_path", ""); p != "" {
		cfg.InputPath = p
	}
	if cfg.InputPath != h.baseCfg.InputPath || cfg.Kind != h.baseCfg.Kind {
		// Configured partition files belong to the configured input
		cfg.Partitions = contract.PartitionPaths{
			Train:    contract.DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.TrainPartition),
			Validate: contract.DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.ValidatePartition),
			Test:     contract.DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.TestPartition),
		}
		cfg.ReshapedPath = ""
	}

	summary, err := core.GetPrepareResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prepare failed: %v", err)), nil
	}

	dist := schema.BuildLabelDistribution(summary.Partitions)
	if l := request.GetInt("limit", cfg.ResultLimit); l > 0 && len(dist) > l {
		dist = dist[:l]
	}
	return jsonResult(struct {
		schema.PrepareSummary
		Distribution []schema.LabelDistribution `json:"label_distribution"`
	}{summary, dist})
}
