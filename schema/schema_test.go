package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupingKeepsFirstSeenOrder(t *testing.T) {
	g := NewGrouping()
	g.Add("md")
	g.Add("cs")
	g.Add("md")
	g.AddN("json", 3)
	g.AddN("skip", 0)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 6, g.Total())
	assert.Equal(t, 2, g.Count("md"))
	assert.Equal(t, 0, g.Count("skip"))
	assert.Equal(t, []TokenCount{
		{Token: "md", Count: 2},
		{Token: "cs", Count: 1},
		{Token: "json", Count: 3},
	}, g.Entries())
}

func TestGroupingMarshalJSON(t *testing.T) {
	g := NewGrouping()
	g.Add("src")
	g.Add("src")

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"token":"src","count":2}]`, string(data))
}

func TestReshapedHeader(t *testing.T) {
	issues := ReshapedHeader(IssuesKind)
	prs := ReshapedHeader(PrsKind)

	assert.Len(t, issues, 9)
	assert.Len(t, prs, 15)
	assert.Equal(t, ColIsPR, issues[IsPRIndex])
	assert.Equal(t, ColIsPR, prs[IsPRIndex])
	assert.Equal(t, issues, prs[:9])
	assert.Equal(t, FileColumns, prs[9:])
}

func TestParseRepoInclusionLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected RepoInclusionLevel
		wantErr  bool
	}{
		{"AllItems", AllItemsLevel, false},
		{"allitems", AllItemsLevel, false},
		{"ITEMSASSIGNEDTOPERSONSET", ItemsAssignedToPersonSetLevel, false},
		{" ignored ", IgnoredLevel, false},
		{"sometimes", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := ParseRepoInclusionLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestRepoDataSet(t *testing.T) {
	ds := NewRepoDataSet(map[string]RepoSetDefinition{
		"web": {
			WorkingLabels: []string{"area-blazor", "area-mvc"},
			Repos: []RepoDefinition{
				{Owner: "aspnet", Name: "Mvc", InclusionLevel: AllItemsLevel},
				{Owner: "aspnet", Name: "Old", InclusionLevel: IgnoredLevel},
			},
		},
		"core": {
			Repos: []RepoDefinition{
				{Owner: "ASPNET", Name: "mvc", InclusionLevel: ItemsAssignedToPersonSetLevel},
				{Owner: "dotnet", Name: "runtime", InclusionLevel: AllItemsLevel},
			},
		},
	})

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"core", "web"}, ds.RepoSetNames())

	web, ok := ds.RepoSet("web")
	require.True(t, ok)
	assert.True(t, web.HasWorkingLabel("area-mvc"))
	assert.False(t, web.HasWorkingLabel("area-razor"))
	assert.Len(t, web.ReposAt(IgnoredLevel), 1)

	_, ok = ds.RepoSet("missing")
	assert.False(t, ok)

	all := ds.AllRepos()
	require.Len(t, all, 2)
	assert.Equal(t, "dotnet/runtime", all[1].FullName())

	assert.Equal(t, 0, EmptyRepoDataSet().Len())
}

func TestPersonSetContains(t *testing.T) {
	p := PersonSet{People: []string{"Alice", "bob"}}
	assert.True(t, p.Contains("alice"))
	assert.True(t, p.Contains("BOB"))
	assert.False(t, p.Contains("carol"))
}
