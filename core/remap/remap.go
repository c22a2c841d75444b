// Package remap builds the label and file remap functions from configuration.
package remap

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/huangsam/miklabel/internal/contract"
	"lukechampine.com/blake3"
)

// Rules holds validated remap configuration. It is immutable after New.
type Rules struct {
	labels      map[labelKey]string
	anyRepo     map[string]string
	targets     map[string]struct{}
	files       []contract.FileRule
	fingerprint string
}

type labelKey struct {
	repo string // lowercased
	from string
}

// New validates cfg and returns the rules it describes.
func New(cfg contract.RemapConfig) (*Rules, error) {
	r := &Rules{
		labels:  make(map[labelKey]string),
		anyRepo: make(map[string]string),
	}
	for i, rule := range cfg.Labels {
		if rule.From == "" {
			return nil, fmt.Errorf("label rule %d: 'from' is required", i)
		}
		if rule.Repo == "" {
			if _, dup := r.anyRepo[rule.From]; dup {
				return nil, fmt.Errorf("label rule %d: duplicate mapping for %q", i, rule.From)
			}
			r.anyRepo[rule.From] = strings.TrimSpace(rule.To)
			continue
		}
		key := labelKey{repo: strings.ToLower(rule.Repo), from: rule.From}
		if _, dup := r.labels[key]; dup {
			return nil, fmt.Errorf("label rule %d: duplicate mapping for %q in %s", i, rule.From, rule.Repo)
		}
		r.labels[key] = strings.TrimSpace(rule.To)
	}
	if len(cfg.TargetLabels) > 0 {
		r.targets = make(map[string]struct{}, len(cfg.TargetLabels))
		for _, l := range cfg.TargetLabels {
			r.targets[l] = struct{}{}
		}
	}
	for i, rule := range cfg.Files {
		if rule.From == "" {
			return nil, fmt.Errorf("file rule %d: 'from' is required", i)
		}
		if rule.Match != "" && !doublestar.ValidatePattern(rule.Match) {
			return nil, fmt.Errorf("file rule %d: invalid match pattern %q", i, rule.Match)
		}
		r.files = append(r.files, rule)
	}

	fp, err := fingerprint(cfg)
	if err != nil {
		return nil, err
	}
	r.fingerprint = fp
	return r, nil
}

// Identity returns rules that keep every label and path as is.
func Identity() *Rules {
	r, _ := New(contract.RemapConfig{})
	return r
}

// Label maps an area of sourceRepo to its training label.
// Repository-specific rules win over repository-less ones. Without a rule,
// the area is kept unless a target allow-list is configured and excludes it.
func (r *Rules) Label(area, sourceRepo string) string {
	area = strings.TrimSpace(area)
	if to, ok := r.labels[labelKey{repo: strings.ToLower(sourceRepo), from: area}]; ok {
		return to
	}
	if to, ok := r.anyRepo[area]; ok {
		return to
	}
	if r.targets != nil {
		if _, ok := r.targets[area]; !ok {
			return ""
		}
	}
	return area
}

// Files rewrites paths of sourceRepo. The first applicable rule wins per path.
func (r *Rules) Files(paths []string, sourceRepo string) []string {
	if len(r.files) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = r.rewrite(p, sourceRepo)
	}
	return out
}

func (r *Rules) rewrite(p, sourceRepo string) string {
	for _, rule := range r.files {
		if rule.Repo != "" && !strings.EqualFold(rule.Repo, sourceRepo) {
			continue
		}
		if !strings.HasPrefix(p, rule.From) {
			continue
		}
		if rule.Match != "" {
			if ok, err := doublestar.Match(rule.Match, p); err != nil || !ok {
				continue
			}
		}
		return rule.To + strings.TrimPrefix(p, rule.From)
	}
	return p
}

// LabelFunc returns Label as a contract.LabelRemapFunc.
func (r *Rules) LabelFunc() contract.LabelRemapFunc {
	return r.Label
}

// FileFunc returns Files as a contract.FileRemapFunc.
func (r *Rules) FileFunc() contract.FileRemapFunc {
	return r.Files
}

// Fingerprint identifies the rule set. Equal configurations share a fingerprint
// regardless of the order of the target labels.
func (r *Rules) Fingerprint() string {
	return r.fingerprint
}

// TargetLabels returns the sorted allow-list, or nil when none is configured.
func (r *Rules) TargetLabels() []string {
	if r.targets == nil {
		return nil
	}
	out := make([]string, 0, len(r.targets))
	for l := range r.targets {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func fingerprint(cfg contract.RemapConfig) (string, error) {
	canonical := cfg
	canonical.TargetLabels = slices.Clone(cfg.TargetLabels)
	slices.Sort(canonical.TargetLabels)
	canonical.TargetLabels = slices.Compact(canonical.TargetLabels)
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint remap rules: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
