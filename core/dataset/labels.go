package dataset

import (
	"github.com/huangsam/miklabel/core/algo"
	"github.com/huangsam/miklabel/schema"
)

// LabelCounts counts the rows per Area label of t, most frequent first.
func LabelCounts(t *Table) []schema.LabelCount {
	g := schema.NewGrouping()
	for _, row := range t.Rows {
		if len(row) > schema.AreaIndex {
			g.Add(row[schema.AreaIndex])
		}
	}
	out := make([]schema.LabelCount, 0, g.Len())
	for _, e := range g.Entries() {
		lc := schema.LabelCount{Label: e.Token, Rows: e.Count}
		if n := t.Len(); n > 0 {
			lc.Share = float64(e.Count) / float64(n)
		}
		out = append(out, lc)
	}
	return algo.RankLabels(out, 0)
}
