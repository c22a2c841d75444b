// Package algo has the ranking logic shared by the dataset pipeline.
package algo

import (
	"sort"

	"github.com/huangsam/miklabel/schema"
)

// RankTokens sorts token counts by count in descending order and returns the
// top 'limit' entries. Ties keep their incoming order, so feeding first-seen
// entries yields a deterministic ranking. A non-positive limit returns all entries.
func RankTokens(entries []schema.TokenCount, limit int) []schema.TokenCount {
	ranked := make([]schema.TokenCount, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}

// RankGrouping ranks every entry of g.
func RankGrouping(g *schema.Grouping) []schema.TokenCount {
	if g == nil {
		return nil
	}
	return RankTokens(g.Entries(), 0)
}

// RankLabels sorts label counts by rows in descending order, breaking ties
// alphabetically, and returns the top 'limit' labels.
func RankLabels(labels []schema.LabelCount, limit int) []schema.LabelCount {
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Rows != labels[j].Rows {
			return labels[i].Rows > labels[j].Rows
		}
		return labels[i].Label < labels[j].Label
	})
	if limit > 0 && len(labels) > limit {
		return labels[:limit]
	}
	return labels
}
