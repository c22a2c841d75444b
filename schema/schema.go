// Package schema holds the data models shared by the dataset pipeline,
// the live data cache and the persistence layer.
package schema

import (
	"encoding/json"
	"time"
)

// Column names of the raw export.
const (
	ColCombinedID  = "CombinedID"
	ColID          = "ID"
	ColArea        = "Area"
	ColTitle       = "Title"
	ColDescription = "Description"
	ColAuthor      = "Author"
	ColIsPR        = "IsPR"
	ColFilePaths   = "FilePaths"
)

// Columns added by the reshaper.
const (
	ColNumMentions    = "NumMentions"
	ColUserMentions   = "UserMentions"
	ColFileCount      = "FileCount"
	ColFiles          = "Files"
	ColFilenames      = "Filenames"
	ColFileExtensions = "FileExtensions"
	ColFolderNames    = "FolderNames"
	ColFolders        = "Folders"
)

// Column positions shared by the raw and reshaped layouts.
const (
	CombinedIDIndex  = 0
	IDIndex          = 1
	AreaIndex        = 2
	TitleIndex       = 3
	DescriptionIndex = 4
	AuthorIndex      = 5
	IsPRIndex        = 6
	FilePathsIndex   = 7
)

// RawHeader is the column layout of the raw tab-separated export.
var RawHeader = []string{
	ColCombinedID, ColID, ColArea, ColTitle, ColDescription, ColAuthor, ColIsPR, ColFilePaths,
}

// FileColumns are appended to the reshaped header for pull request datasets.
var FileColumns = []string{
	ColFileCount, ColFiles, ColFilenames, ColFileExtensions, ColFolderNames, ColFolders,
}

// ReshapedHeader returns the reshaped column layout for the given dataset kind.
func ReshapedHeader(kind DatasetKind) []string {
	header := []string{
		ColCombinedID, ColID, ColArea, ColTitle, ColDescription, ColAuthor, ColIsPR,
		ColNumMentions, ColUserMentions,
	}
	if kind == PrsKind {
		header = append(header, FileColumns...)
	}
	return header
}

// TokenCount is a single entry of a Grouping.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Grouping counts token occurrences and remembers the order in which
// tokens were first seen. The zero value is not usable; call NewGrouping.
type Grouping struct {
	order  []string
	counts map[string]int
}

// NewGrouping returns an empty Grouping.
func NewGrouping() *Grouping {
	return &Grouping{counts: make(map[string]int)}
}

// Add records one occurrence of token.
func (g *Grouping) Add(token string) {
	g.AddN(token, 1)
}

// AddN records n occurrences of token. Non-positive n is ignored.
func (g *Grouping) AddN(token string, n int) {
	if n <= 0 {
		return
	}
	if _, ok := g.counts[token]; !ok {
		g.order = append(g.order, token)
	}
	g.counts[token] += n
}

// Count returns how many times token was recorded.
func (g *Grouping) Count(token string) int {
	return g.counts[token]
}

// Len returns the number of distinct tokens.
func (g *Grouping) Len() int {
	return len(g.order)
}

// Total returns the sum of all counts.
func (g *Grouping) Total() int {
	total := 0
	for _, c := range g.counts {
		total += c
	}
	return total
}

// Entries returns the token counts in first-seen order.
func (g *Grouping) Entries() []TokenCount {
	out := make([]TokenCount, 0, len(g.order))
	for _, token := range g.order {
		out = append(out, TokenCount{Token: token, Count: g.counts[token]})
	}
	return out
}

// MarshalJSON renders the grouping as its first-seen ordered entries.
func (g *Grouping) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Entries())
}

// SegmentedDiff holds the groupings derived from the paths of one pull request.
type SegmentedDiff struct {
	Filenames   *Grouping `json:"filenames"`
	Extensions  *Grouping `json:"extensions"`
	FolderNames *Grouping `json:"folder_names"`
	Folders     *Grouping `json:"folders"`
}

// ReshapeStats counts what happened to each raw row during a reshape.
type ReshapeStats struct {
	Read              int `json:"read"`
	Written           int `json:"written"`
	DroppedUnmapped   int `json:"dropped_unmapped"`
	DroppedMalformed  int `json:"dropped_malformed"`
	DroppedEmptyFiles int `json:"dropped_empty_files"`
	Defaulted         int `json:"defaulted"`
}

// Dropped returns the total number of rows dropped by any policy.
func (s ReshapeStats) Dropped() int {
	return s.DroppedUnmapped + s.DroppedMalformed + s.DroppedEmptyFiles
}

// PartitionCounts holds the body row count of each partition.
type PartitionCounts struct {
	Train    int `json:"train"`
	Validate int `json:"validate"`
	Test     int `json:"test"`
}

// Total returns the number of rows across all partitions.
func (p PartitionCounts) Total() int {
	return p.Train + p.Validate + p.Test
}

// LabelCount is the number of rows carrying one label.
type LabelCount struct {
	Label string  `json:"label"`
	Rows  int     `json:"rows"`
	Share float64 `json:"share"` // fraction of the partition, 0..1
}

// PartitionSummary describes one written partition file.
type PartitionSummary struct {
	Name   PartitionName `json:"name"`
	Path   string        `json:"path"`
	Rows   int           `json:"rows"`
	Labels []LabelCount  `json:"labels"`
}

// PrepareSummary is the outcome of preparing one dataset.
type PrepareSummary struct {
	RunID        int64              `json:"run_id"`
	Kind         DatasetKind        `json:"kind"`
	InputPath    string             `json:"input_path"`
	InputDigest  string             `json:"input_digest"`
	ReshapedPath string             `json:"reshaped_path,omitempty"`
	CacheHit     bool               `json:"cache_hit"`
	Stats        ReshapeStats       `json:"stats"`
	FilteredRows int                `json:"filtered_rows"`
	Counts       PartitionCounts    `json:"counts"`
	Partitions   []PartitionSummary `json:"partitions"`
	Duration     time.Duration      `json:"duration"`
}
