package contract

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/miklabel/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns raw input with the same values the CLI defaults provide.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Output:       string(schema.TextOut),
		Precision:    DefaultPrecision,
		Limit:        DefaultResultLimit,
		Color:        "yes",
		LogLevel:     "warn",
		CacheBackend: string(schema.NoneBackend),
	}
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.tsv")
	require.NoError(t, os.WriteFile(path, []byte("CombinedID\tID\n"), 0o644))
	return path
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "yaml" },
			expectError: "invalid output format",
		},
		{
			name:        "limit too large",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 },
			expectError: "limit must be greater than 0",
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: "invalid --color value",
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "chatty" },
			expectError: "invalid log level",
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: "invalid cache backend",
		},
		{
			name: "mysql without tcp",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "mysql"
				in.CacheDBConnect = "root@localhost/db"
			},
			expectError: "@tcp(",
		},
		{
			name: "same sqlite file for cache and runs",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.RunBackend = "sqlite"
				in.CacheDBConnect = "/tmp/same.db"
				in.RunDBConnect = "/tmp/same.db"
			},
			expectError: "different SQLite database files",
		},
		{
			name:        "invalid kind",
			mutate:      func(in *ConfigRawInput) { in.KindStr = "commits" },
			expectError: "invalid dataset kind",
		},
		{
			name:        "missing input file",
			mutate:      func(in *ConfigRawInput) { in.InputPathStr = "/does/not/exist.tsv" },
			expectError: "cannot read input dataset",
		},
		{
			name:        "malformed cannot default",
			mutate:      func(in *ConfigRawInput) { in.Malformed = "default" },
			expectError: "invalid --malformed value",
		},
		{
			name:        "default label required",
			mutate:      func(in *ConfigRawInput) { in.UnmappedLabel = "default" },
			expectError: "--default-label is required",
		},
		{
			name: "label rule without from",
			mutate: func(in *ConfigRawInput) {
				in.Remap.Labels = []LabelRule{{Repo: "aspnet/Mvc", To: "area-mvc"}}
			},
			expectError: "remap.labels[0]",
		},
		{
			name: "bad file glob",
			mutate: func(in *ConfigRawInput) {
				in.Remap.Files = []FileRule{{Match: "src/[", From: "src/"}}
			},
			expectError: "invalid match pattern",
		},
		{
			name: "dir and url together",
			mutate: func(in *ConfigRawInput) {
				in.DataSourceDir = "."
				in.DataSourceURL = "https://example.com/config"
			},
			expectError: "mutually exclusive",
		},
		{
			name:        "non-http url",
			mutate:      func(in *ConfigRawInput) { in.DataSourceURL = "ftp://example.com" },
			expectError: "invalid --datasource-url",
		},
		{
			name:        "negative reload interval",
			mutate:      func(in *ConfigRawInput) { in.ReloadInterval = -time.Second },
			expectError: "--reload-interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	input := validInput()
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.Equal(t, schema.DatabaseBackend(""), cfg.RunBackend)
	assert.Equal(t, schema.DefaultRowPolicies(), cfg.Policies)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, DefaultReloadDebounce, cfg.ReloadDebounce)
	assert.True(t, cfg.UseColors)
}

func TestProcessAndValidatePartitionPaths(t *testing.T) {
	inputPath := writeInput(t)
	dir := filepath.Dir(inputPath)

	t.Run("defaults derive from input", func(t *testing.T) {
		input := validInput()
		input.KindStr = "prs"
		input.InputPathStr = inputPath
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, input))

		assert.Equal(t, schema.PrsKind, cfg.Kind)
		assert.Equal(t, filepath.Join(dir, "export-prs-train.tsv"), cfg.Partitions.Train)
		assert.Equal(t, filepath.Join(dir, "export-prs-validate.tsv"), cfg.Partitions.Validate)
		assert.Equal(t, filepath.Join(dir, "export-prs-test.tsv"), cfg.Partitions.Test)
	})

	t.Run("explicit paths win", func(t *testing.T) {
		input := validInput()
		input.KindStr = "issues"
		input.InputPathStr = inputPath
		input.Train = filepath.Join(dir, "a.tsv")
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, input))
		assert.Equal(t, input.Train, cfg.Partitions.Train)
		assert.Equal(t, cfg.Partitions.Train, cfg.Partitions.Path(schema.TrainPartition))
	})

	t.Run("output overwrites input", func(t *testing.T) {
		input := validInput()
		input.InputPathStr = inputPath
		input.Test = inputPath
		err := ProcessAndValidate(&Config{}, input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--test must not overwrite")
	})

	t.Run("duplicate outputs", func(t *testing.T) {
		input := validInput()
		input.InputPathStr = inputPath
		input.Train = filepath.Join(dir, "same.tsv")
		input.Validate = filepath.Join(dir, "same.tsv")
		err := ProcessAndValidate(&Config{}, input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve to the same file")
	})
}

func TestProcessRemapRules(t *testing.T) {
	input := validInput()
	input.Remap = RemapConfig{
		TargetLabels: []string{" area-mvc ", ""},
		Labels:       []LabelRule{{Repo: " aspnet/Mvc ", From: " area-razor ", To: "area-mvc"}},
		Files:        []FileRule{{Repo: "aspnet/Mvc", Match: "src/**", From: "src/", To: "src/Mvc/"}},
	}
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, []string{"area-mvc"}, cfg.Remap.TargetLabels)
	assert.Equal(t, LabelRule{Repo: "aspnet/Mvc", From: "area-razor", To: "area-mvc"}, cfg.Remap.Labels[0])
	assert.Len(t, cfg.Remap.Files, 1)

	clone := cfg.Clone()
	clone.Remap.Labels[0].To = "changed"
	assert.Equal(t, "area-mvc", cfg.Remap.Labels[0].To)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "root:pw@tcp(localhost:3306)/miklabel"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost dbname=miklabel"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, ""))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost"))
}

func TestDefaultPartitionPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "raw-issues-test.tsv"), DefaultPartitionPath(filepath.Join("data", "raw.tsv"), schema.IssuesKind, schema.TestPartition))
	assert.Equal(t, filepath.Join("data", "raw-train.tsv"), DefaultPartitionPath(filepath.Join("data", "raw"), "", schema.TrainPartition))
}
