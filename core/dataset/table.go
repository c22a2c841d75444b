// Package dataset reshapes, filters and partitions tab-separated issue and
// pull request exports.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxLineBytes bounds a single TSV line. Descriptions can be long.
const maxLineBytes = 16 * 1024 * 1024

// Table is a tab-separated file held in memory.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of body rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// slice returns a table sharing the header with rows[from:to].
func (t *Table) slice(from, to int) *Table {
	return &Table{Header: t.Header, Rows: t.Rows[from:to]}
}

// ReadTable reads a TSV file whose first non-blank line is the header.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// ParseTable reads a TSV stream. Carriage returns are stripped and blank lines skipped.
func ParseTable(r io.Reader) (*Table, error) {
	t := &Table{}
	err := scanLines(r, func(_ int, line string) error {
		fields := strings.Split(line, "\t")
		if t.Header == nil {
			t.Header = fields
			return nil
		}
		t.Rows = append(t.Rows, fields)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t.Header == nil {
		return nil, fmt.Errorf("%w: input is empty", ErrUnexpectedHeader)
	}
	return t, nil
}

// scanLines calls fn for every non-blank line with its 1-based line number.
func scanLines(r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// WriteTo writes the header and rows as TSV.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(fields []string) error {
		c, err := bw.WriteString(strings.Join(fields, "\t"))
		n += int64(c)
		if err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		n++
		return nil
	}
	if err := write(t.Header); err != nil {
		return n, err
	}
	for _, row := range t.Rows {
		if err := write(row); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteTable writes t to path through a temporary file in the same directory,
// so path either keeps its previous content or holds the complete table.
func WriteTable(path string, t *Table) error {
	tmp, err := stage(path, t)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// stage writes t to a temporary sibling of path and returns its name.
func stage(path string, t *Table) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	_, werr := t.WriteTo(f)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Name(), nil
}
