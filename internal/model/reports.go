package model

import "github.com/shopspring/decimal"

// MonthlyCount is one row of a per-month aggregate (clients joined,
// estimates issued, invoices issued). Month is formatted YYYY-MM.
type MonthlyCount struct {
	Month string
	Count int64
}

// MonthlyTotal is one row of a per-month value aggregate (invoice totals).
type MonthlyTotal struct {
	Total decimal.Decimal
	Month string
}

// ClientMonthValue is one row of the top/bottom clients by invoice value
// report: the summed invoice value for one client in one month.
type ClientMonthValue struct {
	Total    decimal.Decimal
	Month    string
	FullName string
}
