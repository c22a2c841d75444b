package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// PrintRepoSets outputs every repo set of ds, one row per repository.
func PrintRepoSets(ds *schema.RepoDataSet, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepoSetsJSON(w, ds)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepoSetsCSV(w, ds)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRepoSetsText(w, ds)
		}, "Wrote table")
	}
}

func writeRepoSetsJSON(w io.Writer, ds *schema.RepoDataSet) error {
	out := make(map[string]schema.RepoSetDefinition, ds.Len())
	for _, name := range ds.RepoSetNames() {
		def, _ := ds.RepoSet(name)
		out[name] = def
	}
	return writeJSON(w, out)
}

func writeRepoSetsCSV(w io.Writer, ds *schema.RepoDataSet) error {
	header := []string{"repo_set", "repository", "inclusion_level", "person_set"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, name := range ds.RepoSetNames() {
			def, _ := ds.RepoSet(name)
			for _, r := range def.Repos {
				if err := cw.Write([]string{name, r.FullName(), string(r.InclusionLevel), def.AssociatedPersonSetName}); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

func writeRepoSetsText(w io.Writer, ds *schema.RepoDataSet) error {
	if ds.Len() == 0 {
		_, err := fmt.Fprintln(w, "No repo sets loaded")
		return err
	}
	var rows [][]string
	for _, name := range ds.RepoSetNames() {
		def, _ := ds.RepoSet(name)
		rows = append(rows, []string{
			name,
			orDash(def.AssociatedPersonSetName),
			strconv.Itoa(len(def.ReposAt(schema.AllItemsLevel))),
			strconv.Itoa(len(def.ReposAt(schema.ItemsAssignedToPersonSetLevel))),
			strconv.Itoa(len(def.ReposAt(schema.IgnoredLevel))),
			strconv.Itoa(len(def.WorkingLabels)),
		})
	}
	if err := renderTable(w, []string{"Repo Set", "Person Set", "All Items", "Assigned", "Ignored", "Labels"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d repo sets covering %d repositories\n", ds.Len(), len(ds.AllRepos()))
	return err
}

// PrintRepoSet outputs the repositories and labels of one repo set.
func PrintRepoSet(name string, def schema.RepoSetDefinition, cfg *contract.Config) error {
	single := schema.NewRepoDataSet(map[string]schema.RepoSetDefinition{name: def})
	if cfg.Output == schema.JSONOut || cfg.Output == schema.CSVOut {
		return PrintRepoSets(single, cfg)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeRepoSetDetail(w, name, def)
	}, "Wrote table")
}

func writeRepoSetDetail(w io.Writer, name string, def schema.RepoSetDefinition) error {
	if _, err := fmt.Fprintf(w, "Repo set: %s (person set: %s)\n", name, orDash(def.AssociatedPersonSetName)); err != nil {
		return err
	}
	if def.LabelFilter != "" {
		if _, err := fmt.Fprintf(w, "Label filter: %s\n", def.LabelFilter); err != nil {
			return err
		}
	}
	if len(def.WorkingLabels) > 0 {
		if _, err := fmt.Fprintf(w, "Working labels: %s\n", strings.Join(def.WorkingLabels, ", ")); err != nil {
			return err
		}
	}
	for _, link := range def.RepoExtraLinks {
		if _, err := fmt.Fprintf(w, "Link: %s <%s>\n", link.Title, link.URL); err != nil {
			return err
		}
	}
	rows := make([][]string, 0, len(def.Repos))
	for _, r := range def.Repos {
		rows = append(rows, []string{r.FullName(), string(r.InclusionLevel)})
	}
	return renderTable(w, []string{"Repository", "Inclusion"}, rows)
}

// PrintPersonSets outputs the resolved members of each person set.
func PrintPersonSets(sets map[string]schema.PersonSet, cfg *contract.Config) error {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, sets)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"person_set", "person"}, func(cw *csv.Writer) error {
				for _, name := range names {
					for _, person := range sets[name].People {
						if err := cw.Write([]string{name, person}); err != nil {
							return fmt.Errorf("failed to write CSV record: %w", err)
						}
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(names) == 0 {
				_, err := fmt.Fprintln(w, "No person sets loaded")
				return err
			}
			width := getMaxTablePathWidth(cfg, 30)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				people := sets[name].People
				rows = append(rows, []string{name, strconv.Itoa(len(people)), truncateEnd(strings.Join(people, ", "), width)})
			}
			return renderTable(w, []string{"Person Set", "Members", "People"}, rows)
		}, "Wrote table")
	}
}

// PrintDataSourceStatus outputs where the live data cache reads from and what it holds.
func PrintDataSourceStatus(status schema.DataSourceStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		lines := []string{
			fmt.Sprintf("Data Source: %s", status.Source),
			fmt.Sprintf("Repo Sets: %d (etag %s)", status.RepoSets, shortTag(status.RepoSetsETag)),
			fmt.Sprintf("Person Sets: %d (etag %s)", status.PersonSets, shortTag(status.PersonSetsETag)),
		}
		if !status.LastReload.IsZero() {
			lines = append(lines, fmt.Sprintf("Last Reload: %s", status.LastReload.Format(contract.DateTimeFormat)))
		}
		return writeLines(w, lines)
	}, "Wrote text")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortTag abbreviates long content digests.
func shortTag(tag string) string {
	if tag == "" {
		return "none"
	}
	if len(tag) > 12 {
		return tag[:12]
	}
	return tag
}

// truncateEnd cuts s to width runes, ending with "...".
func truncateEnd(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width && width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return s
}
