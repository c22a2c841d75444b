package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/miklabel/schema"
)

// OnlyIssues returns the rows of t whose IsPR flag is 0.
func OnlyIssues(t *Table) (*Table, error) {
	return filterByFlag(t, 0)
}

// OnlyPrs returns the rows of t whose IsPR flag is 1.
func OnlyPrs(t *Table) (*Table, error) {
	return filterByFlag(t, 1)
}

// FilterKind selects the rows belonging to kind.
func FilterKind(t *Table, kind schema.DatasetKind) (*Table, error) {
	if kind == schema.PrsKind {
		return OnlyPrs(t)
	}
	return OnlyIssues(t)
}

// filterByFlag keeps rows whose IsPR column parses to want. Rows with a
// missing or non-numeric flag are excluded. Duplicate rows are preserved.
func filterByFlag(t *Table, want int) (*Table, error) {
	if len(t.Header) <= schema.IsPRIndex || t.Header[schema.IsPRIndex] != schema.ColIsPR {
		return nil, fmt.Errorf("%w: column %d must be %s", ErrUnexpectedHeader, schema.IsPRIndex, schema.ColIsPR)
	}
	out := &Table{Header: t.Header}
	for _, row := range t.Rows {
		if len(row) <= schema.IsPRIndex {
			continue
		}
		flag, err := strconv.Atoi(strings.TrimSpace(row[schema.IsPRIndex]))
		if err != nil || flag != want {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
