package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BartekS5/totesys-etl/pkg/table"
	"github.com/BartekS5/totesys-etl/pkg/utils"
)

// SQLSource runs ad-hoc queries against the source database and returns
// each result set as a table whose columns are those of the query.
type SQLSource struct {
	DB *sql.DB
}

func (s *SQLSource) Query(ctx context.Context, query string) (*table.Table, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	result := table.New(table.StringSchema(cols...))
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(table.Row, len(cols))
		for i, v := range values {
			row[i] = utils.ConvertFromSQL(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLSource) Close() error {
	return s.DB.Close()
}
