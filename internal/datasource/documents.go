package datasource

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/huangsam/miklabel/schema"
	"github.com/xeipuuv/gojsonschema"
)

// Errors returned while building a snapshot from a document.
var (
	ErrSchemaViolation  = errors.New("document does not match its schema")
	ErrImportCycle      = errors.New("person set import cycle")
	ErrUnknownPersonSet = errors.New("unknown person set")
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[string]*gojsonschema.Schema
	schemaErr  error
)

// documentSchema returns the compiled schema of a document name.
func documentSchema(document string) (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemas = make(map[string]*gojsonschema.Schema)
		for _, doc := range []string{schema.RepoSetsDocument, schema.PersonSetsDocument} {
			raw, err := schemaFS.ReadFile("schemas/" + strings.TrimSuffix(doc, ".json") + ".schema.json")
			if err != nil {
				schemaErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				schemaErr = fmt.Errorf("invalid embedded schema for %s: %w", doc, err)
				return
			}
			schemas[doc] = s
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[document]
	if !ok {
		return nil, fmt.Errorf("no schema for document %q", document)
	}
	return s, nil
}

// validateDocument checks content against the embedded schema of document.
func validateDocument(document string, content []byte) error {
	s, err := documentSchema(document)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", document, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", ErrSchemaViolation, document, strings.Join(msgs, "; "))
}

type repoSetDTO struct {
	AssociatedPersonSetName string         `json:"associatedPersonSetName"`
	WorkingLabels           []string       `json:"workingLabels"`
	LabelFilter             string         `json:"labelFilter"`
	RepoExtraLinks          []extraLinkDTO `json:"repoExtraLinks"`
	Repos                   []repoDTO      `json:"repos"`
	RepoSetInclusions       *inclusionsDTO `json:"repoSetInclusions"`
}

type extraLinkDTO struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type repoDTO struct {
	Org            string `json:"org"`
	Repo           string `json:"repo"`
	InclusionLevel string `json:"inclusionLevel"`
}

type inclusionsDTO struct {
	AllItems            []string `json:"allItems"`
	AssignedToPersonSet []string `json:"assignedToPersonSet"`
	Ignore              []string `json:"ignore"`
}

type personSetDTO struct {
	People []string `json:"people"`
	Import []string `json:"import"`
}

// ParseRepoSets validates and decodes repoSets.json into a snapshot.
func ParseRepoSets(content []byte) (*schema.RepoDataSet, error) {
	if err := validateDocument(schema.RepoSetsDocument, content); err != nil {
		return nil, err
	}
	var dtos map[string]repoSetDTO
	if err := json.Unmarshal(content, &dtos); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", schema.RepoSetsDocument, err)
	}

	sets := make(map[string]schema.RepoSetDefinition, len(dtos))
	for name, dto := range dtos {
		def, err := buildRepoSet(dto)
		if err != nil {
			return nil, fmt.Errorf("repo set %q: %w", name, err)
		}
		sets[name] = def
	}
	return schema.NewRepoDataSet(sets), nil
}

// buildRepoSet converts one decoded repo set. Inclusion lists take
// precedence over explicit repo entries.
func buildRepoSet(dto repoSetDTO) (schema.RepoSetDefinition, error) {
	def := schema.RepoSetDefinition{
		AssociatedPersonSetName: dto.AssociatedPersonSetName,
		LabelFilter:             dto.LabelFilter,
		WorkingLabels:           uniqueSorted(dto.WorkingLabels),
		RepoExtraLinks:          make([]schema.RepoExtraLink, 0, len(dto.RepoExtraLinks)),
	}
	for _, link := range dto.RepoExtraLinks {
		def.RepoExtraLinks = append(def.RepoExtraLinks, schema.RepoExtraLink(link))
	}

	if inc := dto.RepoSetInclusions; inc != nil {
		lists := []struct {
			slugs []string
			level schema.RepoInclusionLevel
		}{
			{inc.AllItems, schema.AllItemsLevel},
			{inc.AssignedToPersonSet, schema.ItemsAssignedToPersonSetLevel},
			{inc.Ignore, schema.IgnoredLevel},
		}
		for _, list := range lists {
			for _, slug := range list.slugs {
				owner, name, err := schema.SplitRepoSlug(slug)
				if err != nil {
					return def, err
				}
				def.Repos = append(def.Repos, schema.RepoDefinition{Owner: owner, Name: name, InclusionLevel: list.level})
			}
		}
		return def, nil
	}

	for _, r := range dto.Repos {
		level, err := schema.ParseRepoInclusionLevel(r.InclusionLevel)
		if err != nil {
			return def, fmt.Errorf("repo %s/%s: %w", r.Org, r.Repo, err)
		}
		def.Repos = append(def.Repos, schema.RepoDefinition{Owner: r.Org, Name: r.Repo, InclusionLevel: level})
	}
	return def, nil
}

// ParsePersonSets validates and decodes personSets.json and resolves imports.
func ParsePersonSets(content []byte) (map[string]schema.PersonSet, error) {
	if err := validateDocument(schema.PersonSetsDocument, content); err != nil {
		return nil, err
	}
	var dtos map[string]personSetDTO
	if err := json.Unmarshal(content, &dtos); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", schema.PersonSetsDocument, err)
	}
	return resolvePersonSets(dtos)
}

// resolvePersonSets flattens imports depth first. Each set lists its own
// people before the people of its imports, in import order, and a person
// appears once (case-insensitive, first spelling kept).
func resolvePersonSets(dtos map[string]personSetDTO) (map[string]schema.PersonSet, error) {
	resolved := make(map[string][]string, len(dtos))
	visiting := make(map[string]bool)

	var visit func(name string, path []string) ([]string, error)
	visit = func(name string, path []string) ([]string, error) {
		if people, ok := resolved[name]; ok {
			return people, nil
		}
		dto, ok := dtos[name]
		if !ok {
			return nil, fmt.Errorf("%w %q imported by %q", ErrUnknownPersonSet, name, path[len(path)-2])
		}
		if visiting[name] {
			return nil, fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(path, " -> "))
		}
		visiting[name] = true
		defer delete(visiting, name)

		people := append([]string(nil), dto.People...)
		for _, imp := range dto.Import {
			sub, err := visit(imp, append(path[:len(path):len(path)], imp))
			if err != nil {
				return nil, err
			}
			people = append(people, sub...)
		}
		people = dedupeFold(people)
		resolved[name] = people
		return people, nil
	}

	names := make([]string, 0, len(dtos))
	for name := range dtos {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]schema.PersonSet, len(dtos))
	for _, name := range names {
		people, err := visit(name, []string{name})
		if err != nil {
			return nil, err
		}
		out[name] = schema.PersonSet{People: people}
	}
	return out, nil
}

// dedupeFold drops blank and repeated entries, comparing case-insensitively.
func dedupeFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func uniqueSorted(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup || item == "" {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
