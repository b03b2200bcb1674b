package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estimate is one row of a Joist estimate export. Estimates are append-only:
// a modification in the billing tool produces a new estimate, so no estimate
// is ever updated in place.
type Estimate struct {
	IngestedTime   time.Time
	DateIssued     *time.Time
	DateCreated    *time.Time
	Subtotal       decimal.NullDecimal
	Tax            decimal.NullDecimal
	Total          decimal.NullDecimal
	FullName       string
	Source         string
	EstimateNumber int64
}
