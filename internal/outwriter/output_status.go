package outwriter

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// PrintCacheStatus prints reshape cache status information.
func PrintCacheStatus(status schema.CacheStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCacheStatusText(w, status)
	}, "Wrote text")
}

func writeCacheStatusText(w io.Writer, status schema.CacheStatus) error {
	lines := []string{
		fmt.Sprintf("Cache Backend: %s", status.Backend),
		fmt.Sprintf("Connected: %t", status.Connected),
	}
	if status.Connected {
		lines = append(lines, fmt.Sprintf("Total Entries: %s", humanize.Comma(int64(status.TotalEntries))))
		if status.TotalEntries > 0 {
			lines = append(lines,
				fmt.Sprintf("Last Entry: %s (%s)", status.LastEntryTime.Format(contract.DateTimeFormat), humanize.Time(status.LastEntryTime)),
				fmt.Sprintf("Oldest Entry: %s", status.OldestEntryTime.Format(contract.DateTimeFormat)),
			)
		}
		lines = append(lines, fmt.Sprintf("Table Size: %s", humanize.Bytes(uint64(max(status.TableSizeBytes, 0)))))
	}
	return writeLines(w, lines)
}

// PrintRunStatus prints prepare run store status information.
func PrintRunStatus(status schema.RunStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeRunStatusText(w, status)
	}, "Wrote text")
}

func writeRunStatusText(w io.Writer, status schema.RunStatus) error {
	lines := []string{
		fmt.Sprintf("Run Backend: %s", status.Backend),
		fmt.Sprintf("Connected: %t", status.Connected),
	}
	if status.Connected {
		lines = append(lines, fmt.Sprintf("Total Runs: %s", humanize.Comma(int64(status.TotalRuns))))
		if status.TotalRuns > 0 {
			lines = append(lines,
				fmt.Sprintf("Last Run ID: %d", status.LastRunID),
				fmt.Sprintf("Last Run: %s (%s)", status.LastRunTime.Format(contract.DateTimeFormat), humanize.Time(status.LastRunTime)),
				fmt.Sprintf("Oldest Run: %s", status.OldestRunTime.Format(contract.DateTimeFormat)),
				fmt.Sprintf("Total Rows Written: %s", humanize.Comma(status.TotalRowsWritten)),
			)
		}
		if len(status.TableSizes) > 0 {
			lines = append(lines, "Table Sizes:")
			tables := make([]string, 0, len(status.TableSizes))
			for table := range status.TableSizes {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			for _, table := range tables {
				lines = append(lines, fmt.Sprintf("  %s: %s rows", table, humanize.Comma(status.TableSizes[table])))
			}
		}
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
