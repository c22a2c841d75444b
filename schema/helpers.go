package schema

import (
	"fmt"
	"strings"
)

// SourceRepo returns the repository encoded in the second comma-separated
// segment of a CombinedID. ok is false when the segment is missing or blank.
func SourceRepo(combinedID string) (repo string, ok bool) {
	parts := strings.Split(combinedID, ",")
	if len(parts) < 2 {
		return "", false
	}
	repo = strings.TrimSpace(parts[1])
	return repo, repo != ""
}

// SplitRepoSlug splits an "owner/name" slug. Both halves must be non-empty.
func SplitRepoSlug(slug string) (owner, name string, err error) {
	owner, name, found := strings.Cut(strings.TrimSpace(slug), "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q. expected owner/name", slug)
	}
	return owner, name, nil
}
