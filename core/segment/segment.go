// Package segment splits the changed paths of a pull request into the
// filename, extension and folder groupings used as model features.
package segment

import (
	"path"
	"strings"

	"github.com/huangsam/miklabel/schema"
)

// Tokens used when a path has no extension or no directory.
const (
	NoExtension = "no_extension"
	RootFolder  = "root"
)

// PathSegmenter is the default contract.DiffSegmenter.
// It is stateless and safe for concurrent use.
type PathSegmenter struct{}

// New returns a PathSegmenter.
func New() *PathSegmenter {
	return &PathSegmenter{}
}

// Segment groups paths by filename, extension, folder name and full folder.
// Backslashes are treated as separators and blank entries are ignored.
func (PathSegmenter) Segment(paths []string) schema.SegmentedDiff {
	diff := schema.SegmentedDiff{
		Filenames:   schema.NewGrouping(),
		Extensions:  schema.NewGrouping(),
		FolderNames: schema.NewGrouping(),
		Folders:     schema.NewGrouping(),
	}
	for _, p := range paths {
		p = Normalize(p)
		if p == "" {
			continue
		}

		dir, file := path.Split(p)
		ext := path.Ext(file)
		name := strings.TrimSuffix(file, ext)
		if name == "" {
			// dotfiles such as .gitignore
			name = file
			ext = ""
		}
		diff.Filenames.Add(name)
		if ext = strings.TrimPrefix(ext, "."); ext == "" {
			ext = NoExtension
		}
		diff.Extensions.Add(ext)

		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			diff.Folders.Add(RootFolder)
			continue
		}
		diff.Folders.Add(dir)
		for _, seg := range strings.Split(dir, "/") {
			if seg != "" {
				diff.FolderNames.Add(seg)
			}
		}
	}
	return diff
}

// Normalize trims a path, converts backslashes and drops leading "./" and "/".
func Normalize(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.TrimLeft(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}
