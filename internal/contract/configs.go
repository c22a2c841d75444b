package contract

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/huangsam/miklabel/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit    = 25
	MaxResultLimit        = 1000
	DefaultPrecision      = 1
	DefaultReloadDebounce = 500 * time.Millisecond
	DefaultHTTPTimeout    = 30 * time.Second
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// LabelRule maps one label of one source repository.
// An empty Repo matches every repository; an empty To drops the row.
type LabelRule struct {
	Repo string `mapstructure:"repo" json:"repo,omitempty"`
	From string `mapstructure:"from" json:"from"`
	To   string `mapstructure:"to" json:"to"`
}

// FileRule rewrites a path prefix for one source repository.
// Match is an optional doublestar glob the original path must satisfy.
type FileRule struct {
	Repo  string `mapstructure:"repo" json:"repo,omitempty"`
	Match string `mapstructure:"match" json:"match,omitempty"`
	From  string `mapstructure:"from" json:"from"`
	To    string `mapstructure:"to" json:"to"`
}

// RemapConfig holds the label and file remapping rules from the YAML config file.
type RemapConfig struct {
	TargetLabels []string    `mapstructure:"target-labels" json:"target_labels,omitempty"`
	Labels       []LabelRule `mapstructure:"labels" json:"labels,omitempty"`
	Files        []FileRule  `mapstructure:"files" json:"files,omitempty"`
}

// PartitionPaths names the three files a dataset is split into.
type PartitionPaths struct {
	Train    string
	Validate string
	Test     string
}

// Path returns the file for the given partition.
func (p PartitionPaths) Path(name schema.PartitionName) string {
	switch name {
	case schema.TrainPartition:
		return p.Train
	case schema.ValidatePartition:
		return p.Validate
	default:
		return p.Test
	}
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath    string
	Kind         schema.DatasetKind
	Partitions   PartitionPaths
	ReshapedPath string
	Policies     schema.RowPolicies
	DefaultLabel string
	Remap        RemapConfig

	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	LogLevel    slog.Level

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	DataSourceDir  string
	DataSourceURL  string
	ReloadDebounce time.Duration
	ReloadInterval time.Duration // polling interval for URL sources, 0 = reload once
	MetricsAddr    string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from the command and its positional args, so no tag
	KindStr      string
	InputPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Limit          int    `mapstructure:"limit"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	LogLevel       string `mapstructure:"log-level"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunBackend     string `mapstructure:"run-backend"`
	RunDBConnect   string `mapstructure:"run-db-connect"`

	// --- Fields from prepareCmd.PersistentFlags(), and dataset split positional handling ---
	Train         string `mapstructure:"train"`
	Validate      string `mapstructure:"validate"`
	Test          string `mapstructure:"test"`
	Reshaped      string `mapstructure:"reshaped"`
	UnmappedLabel string `mapstructure:"unmapped-label"`
	Malformed     string `mapstructure:"malformed"`
	EmptyFiles    string `mapstructure:"empty-files"`
	DefaultLabel  string `mapstructure:"default-label"`

	// --- Data source fields from rootCmd.PersistentFlags() ---
	DataSourceDir  string        `mapstructure:"datasource-dir"`
	DataSourceURL  string        `mapstructure:"datasource-url"`
	ReloadDebounce time.Duration `mapstructure:"reload-debounce"`
	ReloadInterval time.Duration `mapstructure:"reload-interval"`
	MetricsAddr    string        `mapstructure:"metrics-addr"`

	// --- Remap rules from config file ---
	Remap RemapConfig `mapstructure:"remap"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Remap.TargetLabels != nil {
		clone.Remap.TargetLabels = append([]string(nil), c.Remap.TargetLabels...)
	}
	if c.Remap.Labels != nil {
		clone.Remap.Labels = append([]LabelRule(nil), c.Remap.Labels...)
	}
	if c.Remap.Files != nil {
		clone.Remap.Files = append([]FileRule(nil), c.Remap.Files...)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// All validation functions read from 'input' and populate 'cfg'.
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDatasetInputs(cfg, input); err != nil {
		return err
	}
	if err := processRowPolicies(cfg, input); err != nil {
		return err
	}
	if err := processRemapRules(cfg, input); err != nil {
		return err
	}
	if err := processDataSource(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("run-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runDBPath := cfg.RunDBConnect
		if runDBPath == "" {
			runDBPath = GetRunDBFilePath()
		}
		if cacheDBPath == runDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	return validateBackendConfigs(cfg, input)
}

// processDatasetInputs resolves the dataset kind and the input and output paths.
// Partition paths default to siblings of the input file.
func processDatasetInputs(cfg *Config, input *ConfigRawInput) error {
	if input.KindStr != "" {
		cfg.Kind = schema.DatasetKind(strings.ToLower(input.KindStr))
		if _, ok := schema.ValidDatasetKinds[cfg.Kind]; !ok {
			return fmt.Errorf("invalid dataset kind '%s'. must be issues or prs", input.KindStr)
		}
	}

	cfg.InputPath = strings.TrimSpace(input.InputPathStr)
	cfg.ReshapedPath = strings.TrimSpace(input.Reshaped)
	if cfg.InputPath == "" {
		return nil
	}

	info, err := os.Stat(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("cannot read input dataset: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input dataset %q is a directory", cfg.InputPath)
	}

	cfg.Partitions = PartitionPaths{
		Train:    orDefault(input.Train, DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.TrainPartition)),
		Validate: orDefault(input.Validate, DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.ValidatePartition)),
		Test:     orDefault(input.Test, DefaultPartitionPath(cfg.InputPath, cfg.Kind, schema.TestPartition)),
	}

	seen := map[string]string{}
	outputs := map[string]string{
		"--train":    cfg.Partitions.Train,
		"--validate": cfg.Partitions.Validate,
		"--test":     cfg.Partitions.Test,
	}
	if cfg.ReshapedPath != "" {
		outputs["--reshaped"] = cfg.ReshapedPath
	}
	absInput, _ := filepath.Abs(cfg.InputPath)
	for flag, p := range outputs {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("invalid %s path: %w", flag, err)
		}
		if abs == absInput {
			return fmt.Errorf("%s must not overwrite the input dataset", flag)
		}
		if other, ok := seen[abs]; ok {
			return fmt.Errorf("%s and %s resolve to the same file %q", other, flag, p)
		}
		seen[abs] = flag
	}
	return nil
}

// processRowPolicies validates the policy chosen for each row anomaly.
func processRowPolicies(cfg *Config, input *ConfigRawInput) error {
	policies := schema.DefaultRowPolicies()
	parse := func(flag, value string, allowed ...schema.RowPolicy) (schema.RowPolicy, error) {
		p := schema.RowPolicy(strings.ToLower(strings.TrimSpace(value)))
		for _, a := range allowed {
			if p == a {
				return p, nil
			}
		}
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = string(a)
		}
		return "", fmt.Errorf("invalid --%s value '%s'. must be %s", flag, value, strings.Join(names, ", "))
	}

	var err error
	if input.UnmappedLabel != "" {
		if policies.UnmappedLabel, err = parse("unmapped-label", input.UnmappedLabel, schema.DropPolicy, schema.FailPolicy, schema.DefaultPolicy); err != nil {
			return err
		}
	}
	if input.Malformed != "" {
		if policies.Malformed, err = parse("malformed", input.Malformed, schema.DropPolicy, schema.FailPolicy); err != nil {
			return err
		}
	}
	if input.EmptyFiles != "" {
		if policies.EmptyFiles, err = parse("empty-files", input.EmptyFiles, schema.DropPolicy, schema.FailPolicy, schema.DefaultPolicy); err != nil {
			return err
		}
	}

	cfg.DefaultLabel = strings.TrimSpace(input.DefaultLabel)
	if policies.UnmappedLabel == schema.DefaultPolicy && cfg.DefaultLabel == "" {
		return fmt.Errorf("--default-label is required when --unmapped-label is default")
	}
	cfg.Policies = policies
	return nil
}

// processRemapRules validates the label and file remapping rules.
func processRemapRules(cfg *Config, input *ConfigRawInput) error {
	remap := RemapConfig{}
	for _, l := range input.Remap.TargetLabels {
		if l = strings.TrimSpace(l); l != "" {
			remap.TargetLabels = append(remap.TargetLabels, l)
		}
	}
	for i, rule := range input.Remap.Labels {
		if strings.TrimSpace(rule.From) == "" {
			return fmt.Errorf("remap.labels[%d]: 'from' is required", i)
		}
		remap.Labels = append(remap.Labels, LabelRule{
			Repo: strings.TrimSpace(rule.Repo),
			From: strings.TrimSpace(rule.From),
			To:   strings.TrimSpace(rule.To),
		})
	}
	for i, rule := range input.Remap.Files {
		if rule.From == "" {
			return fmt.Errorf("remap.files[%d]: 'from' is required", i)
		}
		if rule.Match != "" && !doublestar.ValidatePattern(rule.Match) {
			return fmt.Errorf("remap.files[%d]: invalid match pattern %q", i, rule.Match)
		}
		rule.Repo = strings.TrimSpace(rule.Repo)
		remap.Files = append(remap.Files, rule)
	}
	cfg.Remap = remap
	return nil
}

// processDataSource validates where the live data cache loads its documents from.
func processDataSource(cfg *Config, input *ConfigRawInput) error {
	cfg.DataSourceDir = strings.TrimSpace(input.DataSourceDir)
	cfg.DataSourceURL = strings.TrimSpace(input.DataSourceURL)
	cfg.MetricsAddr = strings.TrimSpace(input.MetricsAddr)

	if cfg.DataSourceDir != "" && cfg.DataSourceURL != "" {
		return fmt.Errorf("--datasource-dir and --datasource-url are mutually exclusive")
	}
	if cfg.DataSourceURL != "" {
		u, err := url.Parse(cfg.DataSourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --datasource-url %q. must be an http or https URL", cfg.DataSourceURL)
		}
	}

	cfg.ReloadDebounce = input.ReloadDebounce
	if cfg.ReloadDebounce <= 0 {
		cfg.ReloadDebounce = DefaultReloadDebounce
	}
	if input.ReloadInterval < 0 {
		return fmt.Errorf("--reload-interval cannot be negative (received %s)", input.ReloadInterval)
	}
	cfg.ReloadInterval = input.ReloadInterval
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// DefaultPartitionPath derives a partition file next to the input,
// e.g. data/export.tsv -> data/export-prs-train.tsv.
func DefaultPartitionPath(inputPath string, kind schema.DatasetKind, name schema.PartitionName) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".tsv"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := []string{stem}
	if kind != "" {
		parts = append(parts, string(kind))
	}
	parts = append(parts, string(name))
	return filepath.Join(dir, strings.Join(parts, "-")+ext)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
