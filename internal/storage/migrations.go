package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// full_name is the natural key; the export carries no usable
				// surrogate id, so it is also the join key for estimates and
				// invoices.
				`CREATE TABLE IF NOT EXISTS clients (
					full_name TEXT PRIMARY KEY,
					email_address TEXT,
					phone_mobile TEXT,
					phone_other TEXT,
					address TEXT,
					address_2 TEXT,
					city TEXT,
					state_province TEXT,
					zip_postal_code INTEGER,
					private_notes TEXT,
					joist_client_id INTEGER,
					ingested_time DATETIME NOT NULL,
					source TEXT
				)`,

				// Every row whose name collides with another stays here for
				// manual review; nothing in this table is deduplicated.
				`CREATE TABLE IF NOT EXISTS dup_name_clients (
					full_name TEXT NOT NULL,
					email_address TEXT,
					phone_mobile TEXT,
					phone_other TEXT,
					address TEXT,
					address_2 TEXT,
					city TEXT,
					state_province TEXT,
					zip_postal_code INTEGER,
					private_notes TEXT,
					joist_client_id INTEGER,
					ingested_time DATETIME NOT NULL,
					source TEXT
				)`,
				`CREATE INDEX idx_dup_name_clients_name ON dup_name_clients(full_name)`,

				`CREATE TABLE IF NOT EXISTS estimates (
					estimate_number INTEGER NOT NULL,
					full_name TEXT NOT NULL,
					subtotal NUMERIC,
					tax NUMERIC,
					total NUMERIC,
					date_issued DATETIME,
					date_created DATETIME,
					ingested_time DATETIME NOT NULL,
					source TEXT
				)`,
				`CREATE INDEX idx_estimates_number ON estimates(estimate_number)`,
				`CREATE INDEX idx_estimates_name ON estimates(full_name)`,

				`CREATE TABLE IF NOT EXISTS invoices (
					invoice_number INTEGER NOT NULL,
					full_name TEXT NOT NULL,
					subtotal NUMERIC,
					tax NUMERIC,
					total NUMERIC,
					date_issued DATETIME,
					date_created DATETIME,
					payment_received_less_refunds NUMERIC,
					ingested_time DATETIME NOT NULL,
					source TEXT
				)`,
				`CREATE INDEX idx_invoices_number ON invoices(invoice_number)`,
				`CREATE INDEX idx_invoices_name ON invoices(full_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add derived join_date to clients",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE clients ADD COLUMN join_date DATE`,
				`CREATE INDEX idx_clients_join_date ON clients(join_date)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add date indexes for the monthly report queries",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_estimates_date_issued ON estimates(date_issued)`,
				`CREATE INDEX IF NOT EXISTS idx_invoices_date_issued ON invoices(date_issued)`,
				// Casefold lookup for duplicate-name collision warnings.
				`CREATE INDEX IF NOT EXISTS idx_clients_name_nocase ON clients(full_name COLLATE NOCASE)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
