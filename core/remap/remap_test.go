package remap

import (
	"testing"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() contract.RemapConfig {
	return contract.RemapConfig{
		Labels: []contract.LabelRule{
			{Repo: "aspnet/Mvc", From: "1 - Ready", To: ""},
			{Repo: "aspnet/Mvc", From: "area-razor", To: "area-mvc"},
			{From: "area-razor", To: "area-razor-tooling"},
			{From: "area-routing", To: "area-mvc"},
		},
		Files: []contract.FileRule{
			{Repo: "aspnet/Mvc", Match: "src/**/*.cs", From: "src/", To: "src/Mvc/"},
			{Repo: "aspnet/Mvc", From: "test/", To: "src/Mvc/test/"},
			{From: "eng/", To: "build/"},
		},
	}
}

// TestLabel tests label lookup precedence.
func TestLabel(t *testing.T) {
	rules, err := New(testConfig())
	require.NoError(t, err)

	tests := []struct {
		name     string
		area     string
		repo     string
		expected string
	}{
		{"repo specific", "area-razor", "aspnet/Mvc", "area-mvc"},
		{"repo match ignores case", "area-razor", "ASPNET/mvc", "area-mvc"},
		{"repo-less fallback", "area-razor", "dotnet/aspnetcore", "area-razor-tooling"},
		{"repo-less everywhere", "area-routing", "aspnet/Mvc", "area-mvc"},
		{"explicit drop", "1 - Ready", "aspnet/Mvc", ""},
		{"identity", "area-blazor", "dotnet/aspnetcore", "area-blazor"},
		{"blank stays blank", "  ", "dotnet/aspnetcore", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.Label(tt.area, tt.repo))
		})
	}
}

func TestLabelTargets(t *testing.T) {
	cfg := testConfig()
	cfg.TargetLabels = []string{"area-mvc", "area-blazor"}
	rules, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "area-blazor", rules.Label("area-blazor", "dotnet/aspnetcore"))
	assert.Equal(t, "", rules.Label("area-signalr", "dotnet/aspnetcore"))
	assert.Equal(t, "area-mvc", rules.Label("area-routing", "dotnet/aspnetcore"))
	assert.Equal(t, []string{"area-blazor", "area-mvc"}, rules.TargetLabels())
}

// TestFiles tests prefix rewriting.
func TestFiles(t *testing.T) {
	rules, err := New(testConfig())
	require.NoError(t, err)

	out := rules.Files([]string{
		"src/Core/Controller.cs",
		"src/Core/readme.md",
		"test/UnitTest.cs",
		"eng/build.ps1",
	}, "aspnet/Mvc")
	assert.Equal(t, []string{
		"src/Mvc/Core/Controller.cs",
		"src/Core/readme.md",
		"src/Mvc/test/UnitTest.cs",
		"build/build.ps1",
	}, out)

	other := rules.Files([]string{"src/Core/Controller.cs", "eng/a.yml"}, "dotnet/aspnetcore")
	assert.Equal(t, []string{"src/Core/Controller.cs", "build/a.yml"}, other)
}

func TestFilesNoRules(t *testing.T) {
	paths := []string{"a.cs"}
	assert.Equal(t, paths, Identity().Files(paths, "x/y"))
	assert.Equal(t, "area-x", Identity().LabelFunc()("area-x", "x/y"))
	assert.Nil(t, Identity().TargetLabels())
}

func TestNewErrors(t *testing.T) {
	_, err := New(contract.RemapConfig{Labels: []contract.LabelRule{{Repo: "a/b", To: "x"}}})
	assert.ErrorContains(t, err, "'from' is required")

	_, err = New(contract.RemapConfig{Labels: []contract.LabelRule{
		{Repo: "a/b", From: "x", To: "y"},
		{Repo: "A/B", From: "x", To: "z"},
	}})
	assert.ErrorContains(t, err, "duplicate mapping")

	_, err = New(contract.RemapConfig{Files: []contract.FileRule{{Match: "src/[", From: "src/"}}})
	assert.ErrorContains(t, err, "invalid match pattern")
}

func TestFingerprint(t *testing.T) {
	a := testConfig()
	a.TargetLabels = []string{"b", "a"}
	b := testConfig()
	b.TargetLabels = []string{"a", "b"}

	ra, err := New(a)
	require.NoError(t, err)
	rb, err := New(b)
	require.NoError(t, err)
	assert.Equal(t, ra.Fingerprint(), rb.Fingerprint())
	assert.Len(t, ra.Fingerprint(), 64)

	assert.NotEqual(t, ra.Fingerprint(), Identity().Fingerprint())
}
