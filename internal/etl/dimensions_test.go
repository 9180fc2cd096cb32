package etl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/totesys-etl/pkg/models"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

func dimension(t *testing.T, name string) models.DimensionSpec {
	t.Helper()
	for _, s := range models.DefaultDimensions() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no dimension %s", name)
	return models.DimensionSpec{}
}

func decode(t *testing.T, body string) *table.Table {
	t.Helper()
	tbl, err := table.DecodeCSV(bytes.NewBufferString(body))
	require.NoError(t, err)
	return tbl
}

func TestBuildStaffLeavesUnmatchedDepartmentNull(t *testing.T) {
	raw := map[string]*table.Table{
		"staff":      decode(t, staffCSV),
		"department": decode(t, departmentCSV),
	}

	res, err := BuildDimension(dimension(t, "dim_staff"), raw)
	require.NoError(t, err)
	require.False(t, res.Skipped())

	out := res.Table
	assert.Equal(t, []string{"staff_id", "first_name", "last_name", "department_name", "location", "email_address"}, out.Columns())
	require.Equal(t, 2, out.Len())

	dept, _ := out.Get(0, "department_name")
	assert.Equal(t, "Purchasing", dept.Text())
	loc, _ := out.Get(0, "location")
	assert.Equal(t, "Manchester", loc.Text())

	for _, col := range []string{"department_name", "location"} {
		v, err := out.Get(1, col)
		require.NoError(t, err)
		assert.True(t, v.IsNull(), "%s should be null for an unknown department", col)
	}
	email, _ := out.Get(1, "email_address")
	assert.Equal(t, "deron.beier@terrifictotes.com", email.Text())
}

func TestBuildDateDerivesYearAndMonth(t *testing.T) {
	raw := map[string]*table.Table{
		"sales_order": decode(t, "sales_order_id,order_date\n1,2024-01-15\n2,2024-01-15\n3,2023-12-01 10:00:00\n4,\n"),
	}

	res, err := BuildDimension(dimension(t, "dim_date"), raw)
	require.NoError(t, err)

	out := res.Table
	require.Equal(t, 3, out.Len())
	year, _ := out.Get(0, "year")
	n, ok := year.Int64()
	require.True(t, ok)
	assert.EqualValues(t, 2024, n)
	month, _ := out.Get(1, "month")
	n, _ = month.Int64()
	assert.EqualValues(t, 12, n)
	missing, _ := out.Get(2, "year")
	assert.True(t, missing.IsNull())

	assert.Equal(t, []string{"sales_order_id", "order_date"}, raw["sales_order"].Columns(), "input is left untouched")
}

func TestBuildTransactionJoinsPayment(t *testing.T) {
	raw := map[string]*table.Table{
		"transaction": decode(t, "transaction_id,transaction_type,timestamp\n1,SALE,2022-11-03 14:20:52\n"),
		"payment":     decode(t, "payment_id,transaction_id,amount,payment_type_id\n7,1,12.50,3\n"),
	}

	res, err := BuildDimension(dimension(t, "dim_transaction"), raw)
	require.NoError(t, err)

	out := res.Table
	assert.Equal(t, []string{"transaction_id", "payment_id", "amount", "payment_type_id", "timestamp"}, out.Columns())
	require.Equal(t, 1, out.Len())
	amount, _ := out.Get(0, "amount")
	assert.Equal(t, "12.50", amount.Text())
}

func TestBuildDimensionSkipsOnMissingInput(t *testing.T) {
	res, err := BuildDimension(dimension(t, "dim_staff"), map[string]*table.Table{
		"staff":      decode(t, staffCSV),
		"department": table.New(table.StringSchema("department_id")),
	})

	require.NoError(t, err)
	assert.True(t, res.Skipped())
	assert.Equal(t, "department data is empty; skipping dim_staff transformation.", res.Warning)
	assert.True(t, res.Table.Empty())
	assert.Equal(t, dimension(t, "dim_staff").Columns, res.Table.Columns())
}

func TestBuildDimensionMissingColumn(t *testing.T) {
	_, err := BuildDimension(dimension(t, "dim_currency"), map[string]*table.Table{
		"currency": decode(t, "currency_id,currency_code\n1,GBP\n"),
	})
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}
