package table

import (
	"fmt"
	"strings"
)

// Project returns a new table holding exactly the named columns, in the
// given order. Every column must exist.
func (t *Table) Project(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	schema := make(Schema, len(columns))
	for i, name := range columns {
		j := t.Schema.Index(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = j
		schema[i] = t.Schema[j]
	}

	out := New(schema)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, src := range t.Rows {
		row := make(Row, len(idx))
		for i, j := range idx {
			row[i] = src[j]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Distinct drops repeated rows, keeping the first occurrence.
func (t *Table) Distinct() *Table {
	out := New(t.Schema)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// LeftJoin keeps every row of t and attaches the columns of right whose
// key matches. A left row matching several right rows is repeated once
// per match; an unmatched left row gets nulls for the right columns.
// The key column appears once, taken from the left side. Right columns
// whose names clash with left columns are dropped.
func (t *Table) LeftJoin(right *Table, on string) (*Table, error) {
	li := t.Schema.Index(on)
	if li < 0 {
		return nil, fmt.Errorf("%w: %s (left side)", ErrMissingColumn, on)
	}
	ri := right.Schema.Index(on)
	if ri < 0 {
		return nil, fmt.Errorf("%w: %s (right side)", ErrMissingColumn, on)
	}

	schema := append(Schema{}, t.Schema...)
	var carry []int
	for j, c := range right.Schema {
		if j == ri || t.Schema.Index(c.Name) >= 0 {
			continue
		}
		schema = append(schema, c)
		carry = append(carry, j)
	}

	index := make(map[string][]Row)
	for _, r := range right.Rows {
		if r[ri].IsNull() {
			continue
		}
		k := r[ri].Text()
		index[k] = append(index[k], r)
	}

	out := New(schema)
	for _, l := range t.Rows {
		var matches []Row
		if !l[li].IsNull() {
			matches = index[l[li].Text()]
		}
		if len(matches) == 0 {
			row := make(Row, len(schema))
			copy(row, l)
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, m := range matches {
			row := make(Row, 0, len(schema))
			row = append(row, l...)
			for _, j := range carry {
				row = append(row, m[j])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// AddColumn appends a column computed from each row.
func (t *Table) AddColumn(col Column, fn func(Row) Value) {
	t.Schema = append(t.Schema, col)
	for i, row := range t.Rows {
		t.Rows[i] = append(row, fn(row))
	}
}

func rowKey(r Row) string {
	var b strings.Builder
	for _, v := range r {
		if v.IsNull() {
			b.WriteString("\x00N")
		} else {
			b.WriteString("\x00V")
			b.WriteString(v.Text())
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}
