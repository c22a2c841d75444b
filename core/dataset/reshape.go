package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/huangsam/miklabel/core/segment"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// ctxCheckInterval is how many rows are processed between cancellation checks.
const ctxCheckInterval = 1024

// Options configures a Reshaper.
type Options struct {
	Kind         schema.DatasetKind
	RemapLabel   contract.LabelRemapFunc
	RemapFiles   contract.FileRemapFunc // required when Kind is PrsKind
	Policies     schema.RowPolicies     // zero fields fall back to schema.DefaultRowPolicies
	DefaultLabel string                 // used by the default unmapped-label policy
}

// Reshaper turns raw export rows into training rows.
// It holds no mutable state and is safe for concurrent use.
type Reshaper struct {
	seg    contract.DiffSegmenter
	opts   Options
	header []string
	logger *slog.Logger
}

// NewReshaper validates opts and returns a Reshaper. A nil segmenter selects
// segment.PathSegmenter and a nil logger discards diagnostics.
func NewReshaper(seg contract.DiffSegmenter, opts Options, logger *slog.Logger) (*Reshaper, error) {
	if _, ok := schema.ValidDatasetKinds[opts.Kind]; !ok {
		return nil, fmt.Errorf("invalid dataset kind %q", opts.Kind)
	}
	if opts.RemapLabel == nil {
		return nil, ErrMissingLabelRemap
	}
	if opts.Kind == schema.PrsKind && opts.RemapFiles == nil {
		return nil, ErrMissingFileRemap
	}

	defaults := schema.DefaultRowPolicies()
	if opts.Policies.UnmappedLabel == "" {
		opts.Policies.UnmappedLabel = defaults.UnmappedLabel
	}
	if opts.Policies.Malformed == "" {
		opts.Policies.Malformed = defaults.Malformed
	}
	if opts.Policies.EmptyFiles == "" {
		opts.Policies.EmptyFiles = defaults.EmptyFiles
	}
	for _, p := range []schema.RowPolicy{opts.Policies.UnmappedLabel, opts.Policies.Malformed, opts.Policies.EmptyFiles} {
		if _, ok := schema.ValidRowPolicies[p]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, p)
		}
	}
	if opts.Policies.Malformed == schema.DefaultPolicy {
		return nil, fmt.Errorf("%w: malformed rows cannot be defaulted", ErrInvalidPolicy)
	}
	opts.DefaultLabel = strings.TrimSpace(opts.DefaultLabel)
	if opts.Policies.UnmappedLabel == schema.DefaultPolicy && opts.DefaultLabel == "" {
		return nil, fmt.Errorf("%w: the default unmapped-label policy needs a default label", ErrInvalidPolicy)
	}

	if seg == nil {
		seg = segment.New()
	}
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &Reshaper{
		seg:    seg,
		opts:   opts,
		header: schema.ReshapedHeader(opts.Kind),
		logger: logger,
	}, nil
}

// Header returns the reshaped column layout.
func (r *Reshaper) Header() []string {
	return r.header
}

// ReshapeFile reshapes the export at path.
func (r *Reshaper) ReshapeFile(ctx context.Context, path string) (*Table, schema.ReshapeStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, schema.ReshapeStats{}, err
	}
	defer func() { _ = f.Close() }()
	return r.Reshape(ctx, f)
}

// Reshape reads a raw export and returns the reshaped table. Header lines
// (starting with CombinedID) and blank lines are skipped. Row anomalies are
// handled by the configured policies; a failing policy aborts with a *RowError.
func (r *Reshaper) Reshape(ctx context.Context, in io.Reader) (*Table, schema.ReshapeStats, error) {
	out := &Table{Header: r.header}
	var stats schema.ReshapeStats

	err := scanLines(in, func(lineNo int, line string) error {
		if strings.HasPrefix(line, schema.ColCombinedID) {
			return nil
		}
		stats.Read++
		if stats.Read%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row, err := r.reshapeRow(lineNo, strings.Split(line, "\t"), &stats)
		if err != nil {
			return err
		}
		if row != nil {
			out.Rows = append(out.Rows, row)
			stats.Written++
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	r.logger.Debug("reshaped dataset",
		"kind", r.opts.Kind, "read", stats.Read, "written", stats.Written, "dropped", stats.Dropped())
	return out, stats, nil
}

// reshapeRow returns the reshaped fields, or nil when the row is dropped.
func (r *Reshaper) reshapeRow(lineNo int, fields []string, stats *schema.ReshapeStats) ([]string, error) {
	isPRMode := r.opts.Kind == schema.PrsKind

	minFields := len(schema.RawHeader)
	if !isPRMode {
		// issue exports may omit the trailing FilePaths column
		minFields--
	}
	if len(fields) < minFields || len(fields) > len(schema.RawHeader) {
		return r.malformed(lineNo, stats, "expected %d fields, got %d", len(schema.RawHeader), len(fields))
	}
	combinedID := fields[schema.CombinedIDIndex]
	repo, ok := schema.SourceRepo(combinedID)
	if !ok {
		return r.malformed(lineNo, stats, "CombinedID %q has no repository segment", combinedID)
	}

	area := strings.TrimSpace(r.opts.RemapLabel(fields[schema.AreaIndex], repo))
	if area == "" {
		switch r.opts.Policies.UnmappedLabel {
		case schema.FailPolicy:
			return nil, rowErr(lineNo, ErrUnmappedLabel, "%q in %s", fields[schema.AreaIndex], repo)
		case schema.DefaultPolicy:
			area = r.opts.DefaultLabel
			stats.Defaulted++
		default:
			stats.DroppedUnmapped++
			r.logger.Debug("dropped unmapped label", "line", lineNo, "area", fields[schema.AreaIndex], "repo", repo)
			return nil, nil
		}
	}

	isPR, err := strconv.Atoi(strings.TrimSpace(fields[schema.IsPRIndex]))
	if err != nil || (isPR != 0 && isPR != 1) {
		return nil, rowErr(lineNo, ErrInvalidFlag, "got %q", fields[schema.IsPRIndex])
	}

	description := fields[schema.DescriptionIndex]
	mentions := ExtractMentions(description)

	row := make([]string, 0, len(r.header))
	row = append(row,
		combinedID,
		fields[schema.IDIndex],
		area,
		fields[schema.TitleIndex],
		description,
		fields[schema.AuthorIndex],
		strconv.Itoa(isPR),
		strconv.Itoa(len(mentions)),
		FlattenList(mentions),
	)
	if !isPRMode {
		return row, nil
	}

	if isPR == 0 {
		return append(row, zeroFileColumns()...), nil
	}
	paths := splitFilePaths(fields[schema.FilePathsIndex])
	if len(paths) == 0 {
		switch r.opts.Policies.EmptyFiles {
		case schema.FailPolicy:
			return nil, rowErr(lineNo, ErrEmptyFiles, "%s", combinedID)
		case schema.DropPolicy:
			stats.DroppedEmptyFiles++
			r.logger.Debug("dropped pull request without files", "line", lineNo, "id", combinedID)
			return nil, nil
		default:
			stats.Defaulted++
			return append(row, zeroFileColumns()...), nil
		}
	}
	return append(row, r.fileColumns(paths, repo)...), nil
}

func (r *Reshaper) malformed(lineNo int, stats *schema.ReshapeStats, format string, args ...any) ([]string, error) {
	if r.opts.Policies.Malformed == schema.DropPolicy {
		stats.DroppedMalformed++
		r.logger.Warn("dropped malformed row", "line", lineNo, "reason", fmt.Sprintf(format, args...))
		return nil, nil
	}
	return nil, rowErr(lineNo, ErrMalformedRow, format, args...)
}

// fileColumns builds FileCount followed by the five flattened file columns.
func (r *Reshaper) fileColumns(paths []string, repo string) []string {
	paths = r.opts.RemapFiles(paths, repo)
	diff := r.seg.Segment(paths)

	files := schema.NewGrouping()
	for _, p := range paths {
		files.Add(p)
	}
	return []string{
		strconv.Itoa(len(paths)),
		FlattenGrouping(files),
		FlattenGrouping(diff.Filenames),
		FlattenGrouping(diff.Extensions),
		FlattenGrouping(diff.FolderNames),
		FlattenGrouping(diff.Folders),
	}
}

// zeroFileColumns is a zero FileCount followed by five empty columns.
func zeroFileColumns() []string {
	return []string{"0", "", "", "", "", ""}
}

// splitFilePaths splits the ;-delimited FilePaths field, ignoring blank entries.
func splitFilePaths(field string) []string {
	var paths []string
	for _, p := range strings.Split(field, ";") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
