package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		precision int
		value     float64
		expected  string
	}{
		{1, 3.14159, "3.1"},
		{2, -42.567, "-42.57"},
		{4, 3.14159, "3.1416"},
	}
	for _, tt := range tests {
		fmtFloat, intFmt := createFormatters(tt.precision)
		assert.Equal(t, tt.expected, fmtFloat(tt.value))
		assert.Equal(t, "%d", intFmt)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"train": 800}))
	assert.Equal(t, "{\n  \"train\": 800\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	assert.ErrorContains(t, err, "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"label", "note"}, func(w *csv.Writer) error {
		return w.Write([]string{"area-mvc", "a value, with comma"})
	})
	require.NoError(t, err)
	assert.Equal(t, "label,note\narea-mvc,\"a value, with comma\"\n", buf.String())

	err = writeCSVWithHeader(&buf, []string{"label"}, func(*csv.Writer) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "content")
		return err
	}, "Wrote text")
	require.NoError(t, err)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	err = writeWithFile(target, func(io.Writer) error { return assert.AnError }, "Wrote text")
	assert.Equal(t, assert.AnError, err)

	err = writeWithFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }, "Wrote text")
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTable(&buf, []string{"Label", "Rows"}, [][]string{{"area-mvc", "808"}}))
	out := buf.String()
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "area-mvc")
	assert.Contains(t, out, "808")
}

func TestGetMaxTablePathWidth(t *testing.T) {
	tests := []struct {
		width    int
		reserved int
		expected int
	}{
		{80, 30, 30},
		{40, 30, minPathWidth},
		{300, 30, maxPathWidth},
	}
	for _, tt := range tests {
		cfg := &contract.Config{Width: tt.width}
		assert.Equal(t, tt.expected, getMaxTablePathWidth(cfg, tt.reserved))
	}
}

func TestTruncateEnd(t *testing.T) {
	assert.Equal(t, "alice, b...", truncateEnd("alice, bob, carol", 11))
	assert.Equal(t, "alice", truncateEnd("alice", 11))
	assert.True(t, strings.HasSuffix(truncateEnd(strings.Repeat("x", 50), 10), "..."))
}
