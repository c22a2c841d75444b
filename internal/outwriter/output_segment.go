package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/miklabel/core/algo"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// namedGrouping pairs a grouping with the name used in output.
type namedGrouping struct {
	Name    string
	Entries []schema.TokenCount
}

// rankedGroupings returns the four groupings of diff ranked by count.
func rankedGroupings(diff schema.SegmentedDiff, limit int) []namedGrouping {
	groups := []struct {
		name string
		g    *schema.Grouping
	}{
		{"filenames", diff.Filenames},
		{"extensions", diff.Extensions},
		{"folder_names", diff.FolderNames},
		{"folders", diff.Folders},
	}
	out := make([]namedGrouping, 0, len(groups))
	for _, g := range groups {
		var entries []schema.TokenCount
		if g.g != nil {
			entries = algo.RankTokens(g.g.Entries(), limit)
		}
		out = append(out, namedGrouping{Name: g.name, Entries: entries})
	}
	return out
}

// PrintSegments outputs the groupings of one segmented diff.
func PrintSegments(diff schema.SegmentedDiff, cfg *contract.Config) error {
	groups := rankedGroupings(diff, cfg.ResultLimit)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSegmentsJSON(w, groups)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSegmentsCSV(w, groups)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSegmentsText(w, groups)
		}, "Wrote table")
	}
}

func writeSegmentsJSON(w io.Writer, groups []namedGrouping) error {
	out := make(map[string][]schema.TokenCount, len(groups))
	for _, g := range groups {
		entries := g.Entries
		if entries == nil {
			entries = []schema.TokenCount{}
		}
		out[g.Name] = entries
	}
	return writeJSON(w, out)
}

func writeSegmentsCSV(w io.Writer, groups []namedGrouping) error {
	return writeCSVWithHeader(w, []string{"grouping", "token", "count"}, func(cw *csv.Writer) error {
		for _, g := range groups {
			for _, e := range g.Entries {
				if err := cw.Write([]string{g.Name, e.Token, strconv.Itoa(e.Count)}); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

func writeSegmentsText(w io.Writer, groups []namedGrouping) error {
	var rows [][]string
	for _, g := range groups {
		for i, e := range g.Entries {
			name := ""
			if i == 0 {
				name = g.Name
			}
			rows = append(rows, []string{name, e.Token, strconv.Itoa(e.Count)})
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No paths to segment")
		return err
	}
	return renderTable(w, []string{"Grouping", "Token", "Count"}, rows)
}
