package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Names of the two documents held by the live data cache.
const (
	RepoSetsDocument   = "repoSets.json"
	PersonSetsDocument = "personSets.json"
)

// RepoInclusionLevel states which items of a repository a repo set covers.
type RepoInclusionLevel string

// All inclusion levels supported.
const (
	AllItemsLevel                 RepoInclusionLevel = "AllItems"
	ItemsAssignedToPersonSetLevel RepoInclusionLevel = "ItemsAssignedToPersonSet"
	IgnoredLevel                  RepoInclusionLevel = "Ignored"
)

// ParseRepoInclusionLevel parses an inclusion level, ignoring case.
func ParseRepoInclusionLevel(s string) (RepoInclusionLevel, error) {
	for _, level := range []RepoInclusionLevel{AllItemsLevel, ItemsAssignedToPersonSetLevel, IgnoredLevel} {
		if strings.EqualFold(strings.TrimSpace(s), string(level)) {
			return level, nil
		}
	}
	return "", fmt.Errorf("invalid inclusion level %q. must be AllItems, ItemsAssignedToPersonSet or Ignored", s)
}

// RepoDefinition is one repository within a repo set.
type RepoDefinition struct {
	Owner          string             `json:"owner"`
	Name           string             `json:"name"`
	InclusionLevel RepoInclusionLevel `json:"inclusion_level"`
}

// FullName returns the "owner/name" slug.
func (r RepoDefinition) FullName() string {
	return r.Owner + "/" + r.Name
}

// RepoExtraLink is an additional link shown next to a repo set.
type RepoExtraLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RepoSetDefinition is a named group of repositories.
type RepoSetDefinition struct {
	AssociatedPersonSetName string           `json:"associated_person_set_name,omitempty"`
	LabelFilter             string           `json:"label_filter,omitempty"`
	WorkingLabels           []string         `json:"working_labels"` // sorted, unique
	RepoExtraLinks          []RepoExtraLink  `json:"repo_extra_links"`
	Repos                   []RepoDefinition `json:"repos"`
}

// HasWorkingLabel reports whether label is one of the set's working labels.
func (d RepoSetDefinition) HasWorkingLabel(label string) bool {
	_, found := slices.BinarySearch(d.WorkingLabels, label)
	return found
}

// ReposAt returns the repositories with the given inclusion level.
func (d RepoSetDefinition) ReposAt(level RepoInclusionLevel) []RepoDefinition {
	var out []RepoDefinition
	for _, r := range d.Repos {
		if r.InclusionLevel == level {
			out = append(out, r)
		}
	}
	return out
}

// RepoDataSet is an immutable snapshot of all repo sets.
type RepoDataSet struct {
	sets map[string]RepoSetDefinition
}

// NewRepoDataSet wraps the given repo sets. The map must not be modified afterwards.
func NewRepoDataSet(sets map[string]RepoSetDefinition) *RepoDataSet {
	if sets == nil {
		sets = map[string]RepoSetDefinition{}
	}
	return &RepoDataSet{sets: sets}
}

// EmptyRepoDataSet returns a snapshot without any repo sets.
func EmptyRepoDataSet() *RepoDataSet {
	return NewRepoDataSet(nil)
}

// Len returns the number of repo sets.
func (ds *RepoDataSet) Len() int {
	return len(ds.sets)
}

// RepoSetNames returns the repo set names in sorted order.
func (ds *RepoDataSet) RepoSetNames() []string {
	names := make([]string, 0, len(ds.sets))
	for name := range ds.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RepoSet returns the repo set with the given name.
func (ds *RepoDataSet) RepoSet(name string) (RepoSetDefinition, bool) {
	def, ok := ds.sets[name]
	return def, ok
}

// AllRepos returns every non-ignored repository across all sets, deduplicated
// by slug (case-insensitive) and sorted.
func (ds *RepoDataSet) AllRepos() []RepoDefinition {
	seen := make(map[string]RepoDefinition)
	for _, def := range ds.sets {
		for _, r := range def.Repos {
			if r.InclusionLevel == IgnoredLevel {
				continue
			}
			key := strings.ToLower(r.FullName())
			if _, ok := seen[key]; !ok {
				seen[key] = r
			}
		}
	}
	out := make([]RepoDefinition, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].FullName()) < strings.ToLower(out[j].FullName())
	})
	return out
}

// PersonSet is the resolved membership of a named person set.
type PersonSet struct {
	People []string `json:"people"`
}

// Contains reports whether login is a member, ignoring case.
func (p PersonSet) Contains(login string) bool {
	for _, person := range p.People {
		if strings.EqualFold(person, login) {
			return true
		}
	}
	return false
}

// ContentResult is what a content provider returns for one document.
// Content is only set when Changed is true.
type ContentResult struct {
	Changed bool
	Content []byte
	ETag    string
}
