package ingest

import (
	"log/slog"
	"time"

	"github.com/crivera/joistsync/internal/batch"
	"github.com/crivera/joistsync/internal/clean"
	"github.com/crivera/joistsync/internal/mapping"
	"github.com/crivera/joistsync/internal/model"
)

// clientStringColumns are the client fields scrubbed before persistence.
var clientStringColumns = []string{
	"full_name", "email_address", "phone_mobile", "phone_other",
	"address", "address_2", "city", "state_province", "private_notes",
}

// clientsFromBatch converts a mapped, cleaned client batch to model rows.
// Rows with a blank name are dropped and reported with their full content.
func clientsFromBatch(b *batch.Batch, source string, ingestedTime time.Time) (clients []model.Client, dropped []string) {
	for _, row := range b.Rows {
		name := clean.Truncate(b.Value(row, "full_name"), model.MaxFullNameLen)
		if clean.Blank(name) {
			dropped = append(dropped, b.RowString(row))
			continue
		}
		clients = append(clients, model.Client{
			FullName:      name,
			EmailAddress:  b.Value(row, "email_address"),
			PhoneMobile:   b.Value(row, "phone_mobile"),
			PhoneOther:    b.Value(row, "phone_other"),
			Address:       b.Value(row, "address"),
			Address2:      b.Value(row, "address_2"),
			City:          b.Value(row, "city"),
			StateProvince: b.Value(row, "state_province"),
			ZipPostalCode: clean.Integer(b.Value(row, "zip_postal_code")),
			PrivateNotes:  clean.Truncate(b.Value(row, "private_notes"), model.MaxPrivateNotesLen),
			JoistClientID: clean.Integer(b.Value(row, "joist_client_id")),
			IngestedTime:  ingestedTime,
			Source:        source,
		})
	}
	return clients, dropped
}

// estimatesFromBatch converts a mapped, cleaned estimate batch. Rows missing
// either required key (estimate number or name) are dropped and reported.
func estimatesFromBatch(b *batch.Batch, source string, ingestedTime time.Time) (estimates []model.Estimate, dropped []string) {
	for _, row := range b.Rows {
		name := clean.Truncate(b.Value(row, "full_name"), model.MaxFullNameLen)
		number := clean.Integer(b.Value(row, "estimate_number"))
		if clean.Blank(name) || number == nil {
			dropped = append(dropped, b.RowString(row))
			continue
		}
		estimates = append(estimates, model.Estimate{
			EstimateNumber: *number,
			FullName:       name,
			Subtotal:       clean.Amount(b.Value(row, "subtotal")),
			Tax:            clean.Amount(b.Value(row, "tax")),
			Total:          clean.Amount(b.Value(row, "total")),
			DateIssued:     clean.Date(b.Value(row, "date_issued")),
			DateCreated:    clean.Date(b.Value(row, "date_created")),
			IngestedTime:   ingestedTime,
			Source:         source,
		})
	}
	return estimates, dropped
}

// invoicesFromBatch converts a mapped, cleaned invoice batch.
func invoicesFromBatch(b *batch.Batch, source string, ingestedTime time.Time) (invoices []model.Invoice, dropped []string) {
	for _, row := range b.Rows {
		name := clean.Truncate(b.Value(row, "full_name"), model.MaxFullNameLen)
		number := clean.Integer(b.Value(row, "invoice_number"))
		if clean.Blank(name) || number == nil {
			dropped = append(dropped, b.RowString(row))
			continue
		}
		invoices = append(invoices, model.Invoice{
			InvoiceNumber:              *number,
			FullName:                   name,
			Subtotal:                   clean.Amount(b.Value(row, "subtotal")),
			Tax:                        clean.Amount(b.Value(row, "tax")),
			Total:                      clean.Amount(b.Value(row, "total")),
			DateIssued:                 clean.Date(b.Value(row, "date_issued")),
			DateCreated:                clean.Date(b.Value(row, "date_created")),
			PaymentReceivedLessRefunds: clean.Amount(b.Value(row, "payment_received_less_refunds")),
			IngestedTime:               ingestedTime,
			Source:                     source,
		})
	}
	return invoices, dropped
}

// prepareBatch applies the rename table and scrubs the named string columns.
func prepareBatch(b *batch.Batch, table mapping.Table, stringColumns []string) {
	table.Apply(b)
	clean.Strings(b, stringColumns...)
}

// reportDropped logs every dropped row with its full content. Dropped rows
// are a data-quality warning, never a silent discard.
func reportDropped(entity, file string, dropped []string) {
	for _, row := range dropped {
		slog.Warn("Dropped row with missing required key",
			"entity", entity,
			"file", file,
			"row", row)
	}
}
