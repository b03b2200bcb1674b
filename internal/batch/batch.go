// Package batch reads rectangular, string-typed tables from Joist CSV
// exports and supports the column operations the pipeline needs: renames,
// uniform column sets, and per-cell access by column name.
package batch

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crivera/joistsync/internal/common"
)

// Batch is an in-memory table. Every cell is a string; typing happens later,
// when rows are converted to model values.
type Batch struct {
	index   map[string]int
	Columns []string
	Rows    [][]string
}

// New builds a batch from a header and rows.
func New(columns []string, rows [][]string) *Batch {
	b := &Batch{Columns: columns, Rows: rows}
	b.reindex()
	return b
}

// Read parses a comma- or tab-separated export with a header line. Short rows
// are padded so every row matches the header width; ragged long rows are a
// parse error.
func Read(r io.Reader, comma rune) (*Batch, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", common.ErrParseFailed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrParseFailed, err)
	}

	var rows [][]string
	for {
		rec, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrParseFailed, readErr)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: row has %d fields, header has %d", common.ErrParseFailed, len(rec), len(header))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		rows = append(rows, rec)
	}

	return New(header, rows), nil
}

// ReadFile opens and parses path. On a parse error the first lines of the
// offending file are returned alongside the error so the caller can surface
// them for diagnosis.
func ReadFile(path string, comma rune) (*Batch, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrFileMissing, path)
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	b, err := Read(f, comma)
	if err != nil {
		return nil, headLines(path, 10), err
	}
	return b, nil, nil
}

// headLines re-reads up to n raw lines of path for parse-error diagnostics.
func headLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < n {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func (b *Batch) reindex() {
	b.index = make(map[string]int, len(b.Columns))
	for i, c := range b.Columns {
		b.index[c] = i
	}
}

// HasColumn reports whether the batch carries the named column.
func (b *Batch) HasColumn(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Value returns the cell for the named column in row, or "" when the column
// is absent.
func (b *Batch) Value(row []string, name string) string {
	i, ok := b.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// SetValue writes the cell for the named column in row i.
func (b *Batch) SetValue(i int, name, value string) {
	col, ok := b.index[name]
	if !ok {
		return
	}
	b.Rows[i][col] = value
}

// RenameColumns applies a source-to-canonical rename table. Unmapped columns
// keep their names.
func (b *Batch) RenameColumns(renames map[string]string) {
	for i, c := range b.Columns {
		if to, ok := renames[c]; ok {
			b.Columns[i] = to
		}
	}
	b.reindex()
}

// EnsureColumns appends any named columns the batch lacks, with empty cells,
// so every persisted batch carries a uniform column set per entity type.
func (b *Batch) EnsureColumns(names []string) {
	for _, name := range names {
		if b.HasColumn(name) {
			continue
		}
		b.Columns = append(b.Columns, name)
		for i := range b.Rows {
			b.Rows[i] = append(b.Rows[i], "")
		}
	}
	b.reindex()
}

// RowString renders one row as "col=val, ..." for dropped-row reporting.
func (b *Batch) RowString(row []string) string {
	parts := make([]string, 0, len(b.Columns))
	for i, c := range b.Columns {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		parts = append(parts, c+"="+v)
	}
	return strings.Join(parts, ", ")
}

// Len returns the row count.
func (b *Batch) Len() int {
	return len(b.Rows)
}
