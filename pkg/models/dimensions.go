package models

// LandingTables are the source tables the transform job rescans when it
// is not given an event.
var LandingTables = []string{
	"sales_order", "design", "address", "counterparty", "transaction",
	"payment", "payment_type", "staff", "currency", "department", "purchase_order",
}

// DefaultDimensions returns the built-in star schema dimensions.
func DefaultDimensions() []DimensionSpec {
	return []DimensionSpec{
		{
			Name: "dim_date",
			Base: "sales_order",
			Derived: []DerivedColumn{
				{Name: "year", From: "order_date", Func: "year"},
				{Name: "month", From: "order_date", Func: "month"},
			},
			Columns:  []string{"order_date", "year", "month"},
			Distinct: true,
		},
		{
			Name: "dim_staff",
			Base: "staff",
			Joins: []JoinSpec{
				{Table: "department", On: "department_id", Columns: []string{"department_name", "location", "manager"}},
			},
			Columns: []string{"staff_id", "first_name", "last_name", "department_name", "location", "email_address"},
		},
		{
			Name:     "dim_counterparty",
			Base:     "counterparty",
			Columns:  []string{"counterparty_id", "name", "address_id", "phone_number"},
			Distinct: true,
		},
		{
			Name:     "dim_currency",
			Base:     "currency",
			Columns:  []string{"currency_id", "currency_code", "description"},
			Distinct: true,
		},
		{
			Name: "dim_transaction",
			Base: "transaction",
			Joins: []JoinSpec{
				{Table: "payment", On: "transaction_id", Columns: []string{"payment_id", "amount", "payment_type_id"}},
			},
			Columns: []string{"transaction_id", "payment_id", "amount", "payment_type_id", "timestamp"},
		},
		{
			Name:     "dim_address",
			Base:     "address",
			Columns:  []string{"address_id", "street", "city", "state", "zip_code", "country"},
			Distinct: true,
		},
	}
}
