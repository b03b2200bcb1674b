package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is one row of a Joist invoice export. Append-only, like estimates.
type Invoice struct {
	IngestedTime               time.Time
	DateIssued                 *time.Time
	DateCreated                *time.Time
	Subtotal                   decimal.NullDecimal
	Tax                        decimal.NullDecimal
	Total                      decimal.NullDecimal
	PaymentReceivedLessRefunds decimal.NullDecimal
	FullName                   string
	Source                     string
	InvoiceNumber              int64
}
