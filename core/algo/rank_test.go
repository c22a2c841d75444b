package algo

import (
	"testing"

	"github.com/huangsam/miklabel/schema"
	"github.com/stretchr/testify/assert"
)

// TestRankTokens tests token ranking logic.
func TestRankTokens(t *testing.T) {
	entries := []schema.TokenCount{
		{Token: "md", Count: 1},
		{Token: "cs", Count: 3},
		{Token: "json", Count: 1},
		{Token: "ts", Count: 3},
	}

	t.Run("descending with stable ties", func(t *testing.T) {
		ranked := RankTokens(entries, 0)
		assert.Equal(t, []schema.TokenCount{
			{Token: "cs", Count: 3},
			{Token: "ts", Count: 3},
			{Token: "md", Count: 1},
			{Token: "json", Count: 1},
		}, ranked)
	})

	t.Run("limit", func(t *testing.T) {
		ranked := RankTokens(entries, 2)
		assert.Len(t, ranked, 2)
		assert.Equal(t, "cs", ranked[0].Token)
	})

	t.Run("input untouched", func(t *testing.T) {
		_ = RankTokens(entries, 0)
		assert.Equal(t, "md", entries[0].Token)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, RankTokens(nil, 5))
	})
}

func TestRankGrouping(t *testing.T) {
	g := schema.NewGrouping()
	g.Add("a")
	g.AddN("b", 2)
	g.Add("c")

	ranked := RankGrouping(g)
	assert.Equal(t, []string{"b", "a", "c"}, []string{ranked[0].Token, ranked[1].Token, ranked[2].Token})
	assert.Nil(t, RankGrouping(nil))
}

// TestRankLabels tests label ranking logic.
func TestRankLabels(t *testing.T) {
	labels := []schema.LabelCount{
		{Label: "area-mvc", Rows: 10},
		{Label: "area-blazor", Rows: 40},
		{Label: "area-auth", Rows: 10},
	}
	ranked := RankLabels(labels, 10)
	assert.Equal(t, "area-blazor", ranked[0].Label)
	assert.Equal(t, "area-auth", ranked[1].Label)
	assert.Equal(t, "area-mvc", ranked[2].Label)

	assert.Len(t, RankLabels(labels, 1), 1)
}
