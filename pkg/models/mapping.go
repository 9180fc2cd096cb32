package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DimensionMapping represents the root of the JSON dimension mapping file.
type DimensionMapping struct {
	Version    string          `json:"version"`
	Dimensions []DimensionSpec `json:"dimensions"`
}

// DimensionSpec declares one output table: where its rows come from, how
// they are joined, and the fixed list of columns it ends up with.
type DimensionSpec struct {
	Name     string          `json:"name"`
	Base     string          `json:"base"`
	Joins    []JoinSpec      `json:"joins,omitempty"`
	Derived  []DerivedColumn `json:"derived,omitempty"`
	Columns  []string        `json:"columns"`
	Distinct bool            `json:"distinct,omitempty"`
}

// JoinSpec is a left join of Table onto the running result on key On.
// Only Columns (plus the key) are taken from the joined table.
type JoinSpec struct {
	Table   string   `json:"table"`
	On      string   `json:"on"`
	Columns []string `json:"columns"`
}

type DerivedColumn struct {
	Name string `json:"name"`
	From string `json:"from"`
	Func string `json:"func"` // "year", "month", "day"
}

// Inputs lists every landing table the dimension needs.
func (d DimensionSpec) Inputs() []string {
	in := []string{d.Base}
	for _, j := range d.Joins {
		in = append(in, j.Table)
	}
	return in
}

func (d DimensionSpec) Validate() error {
	if d.Name == "" {
		return errors.New("dimension name is required")
	}
	if d.Base == "" {
		return fmt.Errorf("dimension %s: base table is required", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("dimension %s: projection cannot be empty", d.Name)
	}
	for _, j := range d.Joins {
		if j.Table == "" || j.On == "" {
			return fmt.Errorf("dimension %s: join needs a table and a key", d.Name)
		}
	}
	for _, dc := range d.Derived {
		switch dc.Func {
		case "year", "month", "day":
		default:
			return fmt.Errorf("dimension %s: unknown derive func %q", d.Name, dc.Func)
		}
	}
	return nil
}

func LoadMapping(data []byte) (*DimensionMapping, error) {
	var m DimensionMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Dimensions) == 0 {
		return nil, errors.New("mapping declares no dimensions")
	}
	seen := make(map[string]bool)
	for _, d := range m.Dimensions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("dimension %s declared twice", d.Name)
		}
		seen[d.Name] = true
	}
	return &m, nil
}
