package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// prepareJSON is the JSON rendering of a prepare summary.
type prepareJSON struct {
	schema.PrepareSummary
	Distribution []labelDistributionJSON `json:"label_distribution"`
}

type labelDistributionJSON struct {
	schema.LabelDistribution
	Balance string `json:"balance"`
}

// PrintPrepareSummary outputs a prepare summary, dispatching based on the output format configured.
func PrintPrepareSummary(summary schema.PrepareSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	dist := limitDistribution(schema.BuildLabelDistribution(summary.Partitions), cfg.ResultLimit)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePrepareJSON(w, summary, dist)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDistributionCSV(w, dist, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePrepareText(w, summary, dist, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// limitDistribution keeps the first limit labels. A non-positive limit keeps all.
func limitDistribution(dist []schema.LabelDistribution, limit int) []schema.LabelDistribution {
	if limit > 0 && len(dist) > limit {
		return dist[:limit]
	}
	return dist
}

func writePrepareJSON(w io.Writer, summary schema.PrepareSummary, dist []schema.LabelDistribution) error {
	out := prepareJSON{PrepareSummary: summary, Distribution: make([]labelDistributionJSON, len(dist))}
	for i, d := range dist {
		out.Distribution[i] = labelDistributionJSON{LabelDistribution: d, Balance: contract.GetPlainLabel(d.Drift)}
	}
	return writeJSON(w, out)
}

func writeDistributionCSV(w io.Writer, dist []schema.LabelDistribution, fmtFloat func(float64) string) error {
	header := []string{"label", "train", "validate", "test", "total", "drift", "balance"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range dist {
			rec := []string{
				d.Label,
				fmt.Sprint(d.Train),
				fmt.Sprint(d.Validate),
				fmt.Sprint(d.Test),
				fmt.Sprint(d.Total),
				fmtFloat(d.Drift),
				contract.GetPlainLabel(d.Drift),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

// writePrepareText renders the row accounting, the partition files and the label distribution.
func writePrepareText(w io.Writer, s schema.PrepareSummary, dist []schema.LabelDistribution, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	st := s.Stats
	if _, err := fmt.Fprintf(w, "Rows: read %s, written %s, dropped %s (unmapped %s, malformed %s, no files %s), defaulted %s\n",
		humanize.Comma(int64(st.Read)),
		humanize.Comma(int64(st.Written)),
		humanize.Comma(int64(st.Dropped())),
		humanize.Comma(int64(st.DroppedUnmapped)),
		humanize.Comma(int64(st.DroppedMalformed)),
		humanize.Comma(int64(st.DroppedEmptyFiles)),
		humanize.Comma(int64(st.Defaulted)),
	); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Kept %s %s rows (reshape cache hit: %t)\n",
		humanize.Comma(int64(s.FilteredRows)), s.Kind, s.CacheHit); err != nil {
		return err
	}

	if err := writePartitionTables(w, s.FilteredRows, s.Partitions, dist, cfg, fmtFloat); err != nil {
		return err
	}

	if s.RunID > 0 {
		if _, err := fmt.Fprintf(w, "Recorded as run %d. ", s.RunID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Prepared in %v. Cache backend: %s\n", duration.Round(time.Millisecond), cfg.CacheBackend)
	return err
}

// writePartitionTables renders the partition files and the label distribution.
func writePartitionTables(w io.Writer, total int, parts []schema.PartitionSummary, dist []schema.LabelDistribution, cfg *contract.Config, fmtFloat func(float64) string) error {
	pathWidth := getMaxTablePathWidth(cfg, 30)
	var partRows [][]string
	for _, p := range parts {
		share := 0.0
		if total > 0 {
			share = float64(p.Rows) / float64(total)
		}
		partRows = append(partRows, []string{
			string(p.Name),
			contract.TruncatePath(p.Path, pathWidth),
			humanize.Comma(int64(p.Rows)),
			percent(share, fmtFloat),
		})
	}
	if err := renderTable(w, []string{"Partition", "Path", "Rows", "Share"}, partRows); err != nil {
		return err
	}

	if len(dist) > 0 {
		var labelRows [][]string
		for _, d := range dist {
			labelRows = append(labelRows, []string{
				d.Label,
				humanize.Comma(int64(d.Train)),
				humanize.Comma(int64(d.Validate)),
				humanize.Comma(int64(d.Test)),
				humanize.Comma(int64(d.Total)),
				fmtFloat(d.Drift),
				contract.GetColorLabel(d.Drift),
			})
		}
		if err := renderTable(w, []string{"Label", "Train", "Validate", "Test", "Total", "Drift", "Balance"}, labelRows); err != nil {
			return err
		}
	}
	return nil
}

// PrintSplitSummary outputs the partitions written by a standalone split.
func PrintSplitSummary(parts []schema.PartitionSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	dist := limitDistribution(schema.BuildLabelDistribution(parts), cfg.ResultLimit)
	total := 0
	for _, p := range parts {
		total += p.Rows
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, parts)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDistributionCSV(w, dist, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writePartitionTables(w, total, parts, dist, cfg, fmtFloat); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Split %s rows in %v\n", humanize.Comma(int64(total)), duration.Round(time.Millisecond))
			return err
		}, "Wrote table")
	}
}
