package dataset

import (
	"strings"

	"github.com/huangsam/miklabel/core/algo"
	"github.com/huangsam/miklabel/schema"
)

// FlattenGrouping renders g as a space-separated column where every token is
// repeated by its count, most frequent first. Ties keep first-seen order.
func FlattenGrouping(g *schema.Grouping) string {
	var sb strings.Builder
	for _, e := range algo.RankGrouping(g) {
		for range e.Count {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(e.Token)
		}
	}
	return sb.String()
}

// FlattenList joins tokens with single spaces, keeping their order.
func FlattenList(tokens []string) string {
	return strings.Join(tokens, " ")
}

// ParseFlattened counts the tokens of a flattened column.
func ParseFlattened(column string) *schema.Grouping {
	g := schema.NewGrouping()
	for _, token := range strings.Fields(column) {
		g.Add(token)
	}
	return g
}
