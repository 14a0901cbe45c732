// Package table implements the ordered-column string table the pivot and
// final-adjustment stages reshape. Columns keep insertion order; cell
// access is by column name, never by position.
package table

import (
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// Table is an ordered set of named columns over string cells. The zero
// value is not usable; construct with New.
type Table struct {
	headers []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty table with the given column order.
func New(headers []string) *Table {
	t := &Table{
		headers: append([]string(nil), headers...),
		index:   make(map[string]int, len(headers)),
	}
	for i, h := range headers {
		t.index[h] = i
	}
	return t
}

// Headers returns the column names in order. The slice is shared; callers
// must not mutate it.
func (t *Table) Headers() []string {
	return t.headers
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row from a column-name→value map. Columns absent from
// the map get empty cells; keys not in the header are ignored.
func (t *Table) AppendRow(values map[string]string) {
	row := make([]string, len(t.headers))
	for name, v := range values {
		if i, ok := t.index[name]; ok {
			row[i] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Get returns the cell at (row, column). Missing columns read as "".
func (t *Table) Get(row int, name string) string {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	return t.rows[row][i]
}

// Set writes the cell at (row, column). Unknown columns are a no-op.
func (t *Table) Set(row int, name, value string) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= len(t.rows) {
		return
	}
	t.rows[row][i] = value
}

// InsertAfter adds an empty column immediately after the anchor column.
// If the anchor is missing the column is appended at the end.
func (t *Table) InsertAfter(anchor, name string) {
	pos := len(t.headers)
	if i, ok := t.index[anchor]; ok {
		pos = i + 1
	}
	t.insertAt(pos, name)
}

// InsertBefore adds an empty column immediately before the anchor column.
// If the anchor is missing the column is appended at the end.
func (t *Table) InsertBefore(anchor, name string) {
	pos := len(t.headers)
	if i, ok := t.index[anchor]; ok {
		pos = i
	}
	t.insertAt(pos, name)
}

func (t *Table) insertAt(pos int, name string) {
	if t.HasColumn(name) {
		return
	}
	t.headers = append(t.headers, "")
	copy(t.headers[pos+1:], t.headers[pos:])
	t.headers[pos] = name
	t.reindex()

	for i, row := range t.rows {
		row = append(row, "")
		copy(row[pos+1:], row[pos:])
		row[pos] = ""
		t.rows[i] = row
	}
}

// Drop removes a column if present.
func (t *Table) Drop(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.headers = append(t.headers[:i], t.headers[i+1:]...)
	t.reindex()
	for j, row := range t.rows {
		t.rows[j] = append(row[:i], row[i+1:]...)
	}
}

// Rename applies a column-name mapping. Names absent from the table are
// skipped, so applying the same mapping twice is a no-op as long as the
// mapping's domain and range are disjoint.
func (t *Table) Rename(mapping map[string]string) {
	for i, h := range t.headers {
		if newName, ok := mapping[h]; ok {
			t.headers[i] = newName
		}
	}
	t.reindex()
}

// Project returns a new table containing only the named columns that
// exist, in the given order.
func (t *Table) Project(names []string) *Table {
	var keep []string
	for _, n := range names {
		if t.HasColumn(n) {
			keep = append(keep, n)
		}
	}
	out := New(keep)
	for r := range t.rows {
		row := make([]string, len(keep))
		for i, n := range keep {
			row[i] = t.Get(r, n)
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// MoveAfter repositions the named columns (those present) so they sit
// directly after the anchor column, preserving their relative order.
func (t *Table) MoveAfter(anchor string, names []string) error {
	if !t.HasColumn(anchor) {
		return eris.Errorf("table: anchor column %q not found", anchor)
	}
	moving := make(map[string]bool, len(names))
	var present []string
	for _, n := range names {
		if t.HasColumn(n) && n != anchor {
			moving[n] = true
			present = append(present, n)
		}
	}
	if len(present) == 0 {
		return nil
	}

	var order []string
	for _, h := range t.headers {
		if moving[h] {
			continue
		}
		order = append(order, h)
		if h == anchor {
			order = append(order, present...)
		}
	}

	reordered := t.Project(order)
	t.headers = reordered.headers
	t.index = reordered.index
	t.rows = reordered.rows
	return nil
}

// SortBy sorts rows ascending by the named column. Values that both
// parse as integers compare numerically, everything else lexically.
func (t *Table) SortBy(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		return lessValue(t.rows[a][i], t.rows[b][i])
	})
}

func lessValue(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Each calls fn for every row index.
func (t *Table) Each(fn func(row int)) {
	for i := range t.rows {
		fn(i)
	}
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.headers))
	for i, h := range t.headers {
		t.index[h] = i
	}
}
