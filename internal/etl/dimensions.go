package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/totesys-etl/pkg/models"
	"github.com/BartekS5/totesys-etl/pkg/table"
	"github.com/BartekS5/totesys-etl/pkg/utils"
)

// DimensionResult is one built output table. Warning is set when the
// dimension was skipped; Table is then empty but keeps the projection.
type DimensionResult struct {
	Name    string
	Table   *table.Table
	Warning string
}

func (r DimensionResult) Skipped() bool {
	return r.Warning != ""
}

// BuildDimension applies the joins, derived columns, projection and
// de-duplication declared by dim to the raw landing tables. A missing or
// empty input skips the dimension with a warning. A projected column that
// does not exist is an error.
func BuildDimension(dim models.DimensionSpec, raw map[string]*table.Table) (DimensionResult, error) {
	res := DimensionResult{Name: dim.Name}

	var missing []string
	for _, in := range dim.Inputs() {
		if raw[in].Empty() {
			missing = append(missing, in)
		}
	}
	if len(missing) > 0 {
		res.Table = table.New(table.StringSchema(dim.Columns...))
		res.Warning = fmt.Sprintf("%s data is empty; skipping %s transformation.", strings.Join(missing, " or "), dim.Name)
		return res, nil
	}

	current := raw[dim.Base]
	for _, j := range dim.Joins {
		right, err := raw[j.Table].Project(append([]string{j.On}, j.Columns...)...)
		if err != nil {
			return res, fmt.Errorf("%s: join input %s: %w", dim.Name, j.Table, err)
		}
		current, err = current.LeftJoin(right, j.On)
		if err != nil {
			return res, fmt.Errorf("%s: joining %s: %w", dim.Name, j.Table, err)
		}
	}

	if len(dim.Derived) > 0 {
		// Copy before adding columns so the shared raw table is untouched.
		copied, err := current.Project(current.Columns()...)
		if err != nil {
			return res, err
		}
		current = copied
		for _, d := range dim.Derived {
			if err := derive(current, d); err != nil {
				return res, fmt.Errorf("%s: %w", dim.Name, err)
			}
		}
	}

	out, err := current.Project(dim.Columns...)
	if err != nil {
		return res, fmt.Errorf("%s: %w", dim.Name, err)
	}
	if dim.Distinct {
		out = out.Distinct()
	}
	res.Table = out
	return res, nil
}

func derive(t *table.Table, d models.DerivedColumn) error {
	src := t.Schema.Index(d.From)
	if src < 0 {
		return fmt.Errorf("deriving %s: %w: %s", d.Name, table.ErrMissingColumn, d.From)
	}

	compute := func(r table.Row) table.Value {
		v := r[src]
		if v.IsNull() {
			return table.Null()
		}
		ts, err := utils.ParseDate(v.Text())
		if err != nil {
			return table.Null()
		}
		switch d.Func {
		case "year":
			return table.Int(int64(ts.Year()))
		case "month":
			return table.Int(int64(ts.Month()))
		case "day":
			return table.Int(int64(ts.Day()))
		}
		return table.Null()
	}

	col := table.Column{Name: d.Name, Kind: table.KindInt64}
	if dst := t.Schema.Index(d.Name); dst >= 0 {
		// Derived values replace a source column of the same name.
		t.Schema[dst] = col
		for _, r := range t.Rows {
			r[dst] = compute(r)
		}
		return nil
	}
	t.AddColumn(col, compute)
	return nil
}
