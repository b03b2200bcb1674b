package storage

import (
	"context"
	"fmt"

	"github.com/crivera/joistsync/internal/model"
)

// SaveEstimates appends a batch of estimates. Estimates are append-only:
// there is no upsert path and no update path.
func (s *SQLiteStorage) SaveEstimates(ctx context.Context, estimates []model.Estimate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEstimates(estimates); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO estimates (
			estimate_number, full_name, subtotal, tax, total,
			date_issued, date_created, ingested_time, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range estimates {
		_, err = stmt.ExecContext(ctx,
			e.EstimateNumber,
			e.FullName,
			nullDecimal(e.Subtotal),
			nullDecimal(e.Tax),
			nullDecimal(e.Total),
			nullTime(e.DateIssued),
			nullTime(e.DateCreated),
			e.IngestedTime,
			nullString(e.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to insert estimate %d: %w", e.EstimateNumber, err)
		}
	}

	return tx.Commit()
}

// CountEstimates returns the total number of persisted estimates.
func (s *SQLiteStorage) CountEstimates(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM estimates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count estimates: %w", err)
	}
	return count, nil
}
