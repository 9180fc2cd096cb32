// Package table holds the in-memory tabular model shared by the extract
// and transform jobs: an ordered column schema plus an ordered sequence
// of rows.
package table

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrNoColumns     = errors.New("column headers cannot be empty")
	ErrEmptyTable    = errors.New("table has no rows")
	ErrMissingColumn = errors.New("column not found")
	ErrRowWidth      = errors.New("row width does not match schema")
)

type Kind int

const (
	KindString Kind = iota
	KindInt64
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	default:
		return "string"
	}
}

type Column struct {
	Name string
	Kind Kind
}

type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// StringSchema builds a schema where every column holds text.
func StringSchema(names ...string) Schema {
	s := make(Schema, len(names))
	for i, n := range names {
		s[i] = Column{Name: n, Kind: KindString}
	}
	return s
}

// Value is a single nullable cell.
type Value struct {
	kind  Kind
	str   string
	num   int64
	valid bool
}

func String(s string) Value { return Value{kind: KindString, str: s, valid: true} }
func Int(n int64) Value     { return Value{kind: KindInt64, num: n, valid: true} }
func Null() Value           { return Value{} }

func (v Value) IsNull() bool { return !v.valid }
func (v Value) Kind() Kind   { return v.kind }

// Text renders the value the way it is written to CSV. Null is "".
func (v Value) Text() string {
	if !v.valid {
		return ""
	}
	if v.kind == KindInt64 {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// Int64 returns the numeric form of the value, parsing text if needed.
func (v Value) Int64() (int64, bool) {
	if !v.valid {
		return 0, false
	}
	if v.kind == KindInt64 {
		return v.num, true
	}
	n, err := strconv.ParseInt(v.str, 10, 64)
	return n, err == nil
}

func (v Value) String() string {
	if !v.valid {
		return "<null>"
	}
	return v.Text()
}

type Row []Value

type Table struct {
	Schema Schema
	Rows   []Row
}

func New(schema Schema) *Table {
	return &Table{Schema: schema}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table is absent or has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return t.Schema.Names()
}

// Get returns the value of the named column in row i.
func (t *Table) Get(i int, column string) (Value, error) {
	idx := t.Schema.Index(column)
	if idx < 0 {
		return Null(), fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	return t.Rows[i][idx], nil
}

// Concat appends the rows of other, aligning columns by name. Columns
// only present in other are added to the schema and back-filled with
// nulls for the existing rows.
func (t *Table) Concat(other *Table) {
	if other == nil {
		return
	}
	for _, c := range other.Schema {
		if t.Schema.Index(c.Name) < 0 {
			t.Schema = append(t.Schema, c)
			for i := range t.Rows {
				t.Rows[i] = append(t.Rows[i], Null())
			}
		}
	}

	mapping := make([]int, len(t.Schema))
	for i, c := range t.Schema {
		mapping[i] = other.Schema.Index(c.Name)
	}
	for _, src := range other.Rows {
		row := make(Row, len(t.Schema))
		for i, j := range mapping {
			if j >= 0 {
				row[i] = src[j]
			}
		}
		t.Rows = append(t.Rows, row)
	}
}
