package contract

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		drift    float64
		expected string
	}{
		{"Skewed Upper", 100.0, SkewedValue},
		{"Skewed Lower", 10.0, SkewedValue},
		{"Uneven Upper", 9.9, UnevenValue},
		{"Uneven Lower", 5.0, UnevenValue},
		{"Slight Upper", 4.9, SlightValue},
		{"Slight Lower", 2.0, SlightValue},
		{"Balanced", 1.9, BalancedValue},
		{"Zero", 0.0, BalancedValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.drift))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	assert.Equal(t, SkewedValue, GetColorLabel(12))
	assert.Equal(t, BalancedValue, GetColorLabel(0))
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.json")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.FileExists(t, path)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.go", TruncatePath("short.go", 20))
	assert.Equal(t, ".../file.go", TruncatePath("a/very/long/path/file.go", 11))
	assert.Equal(t, "abcdef", TruncatePath("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("perhaps")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelWarn,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, expected := range tests {
		level, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, level, in)
	}
	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("reloaded", "document", "repoSets.json")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "document=repoSets.json")

	DiscardLogger().Error("dropped")
}

func TestGetDBFilePaths(t *testing.T) {
	assert.NotEqual(t, GetCacheDBFilePath(), GetRunDBFilePath())
	assert.Contains(t, GetCacheDBFilePath(), ".miklabel_cache.db")
}
