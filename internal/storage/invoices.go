package storage

import (
	"context"
	"fmt"

	"github.com/crivera/joistsync/internal/model"
)

// SaveInvoices appends a batch of invoices. Append-only, like estimates.
func (s *SQLiteStorage) SaveInvoices(ctx context.Context, invoices []model.Invoice) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInvoices(invoices); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoices (
			invoice_number, full_name, subtotal, tax, total,
			date_issued, date_created, payment_received_less_refunds,
			ingested_time, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, inv := range invoices {
		_, err = stmt.ExecContext(ctx,
			inv.InvoiceNumber,
			inv.FullName,
			nullDecimal(inv.Subtotal),
			nullDecimal(inv.Tax),
			nullDecimal(inv.Total),
			nullTime(inv.DateIssued),
			nullTime(inv.DateCreated),
			nullDecimal(inv.PaymentReceivedLessRefunds),
			inv.IngestedTime,
			nullString(inv.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice %d: %w", inv.InvoiceNumber, err)
		}
	}

	return tx.Commit()
}

// CountInvoices returns the total number of persisted invoices.
func (s *SQLiteStorage) CountInvoices(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}
