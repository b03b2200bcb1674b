package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/crivera/joistsync/internal/common"
	"github.com/crivera/joistsync/internal/model"
)

const clientColumns = `full_name, email_address, phone_mobile, phone_other,
	address, address_2, city, state_province, zip_postal_code,
	private_notes, joist_client_id, ingested_time, source, join_date`

// ListClientNames returns every full_name in the clients table. A full scan
// is acceptable here: client cardinality is small relative to batch cost.
// Revisit if the table grows past tens of thousands of rows.
func (s *SQLiteStorage) ListClientNames(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT full_name FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("failed to query client names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan client name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ClientNamesExisting reports which of the given names already have a client
// row. Used to verify the no-orphan post-condition after reconciliation.
func (s *SQLiteStorage) ClientNamesExisting(ctx context.Context, names []string) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(names))
	if len(names) == 0 {
		return existing, nil
	}

	stmt, err := s.db.PrepareContext(ctx, `SELECT 1 FROM clients WHERE full_name = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare name lookup: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, name := range names {
		var one int
		err := stmt.QueryRowContext(ctx, name).Scan(&one)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up client %q: %w", name, err)
		}
		existing[name] = true
	}
	return existing, nil
}

// SaveClients inserts canonical client rows. A name collision with an
// existing canonical row is an error: collisions belong in dup_name_clients.
func (s *SQLiteStorage) SaveClients(ctx context.Context, clients []model.Client) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClients(clients); err != nil {
		return err
	}
	return s.insertClients(ctx, "clients", false, clients)
}

// InsertMinimalClients inserts the skeleton rows synthesized for names
// referenced by estimates or invoices but absent from the clients table.
// INSERT OR IGNORE makes re-running the backfill for an existing name a
// no-op, which is what lets a failed phase-2 persist be retried safely.
func (s *SQLiteStorage) InsertMinimalClients(ctx context.Context, clients []model.Client) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClients(clients); err != nil {
		return err
	}
	return s.insertClients(ctx, "clients", true, clients)
}

// SaveDuplicateClients appends colliding rows to the duplicate-holding table.
func (s *SQLiteStorage) SaveDuplicateClients(ctx context.Context, clients []model.Client) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClients(clients); err != nil {
		return err
	}
	return s.insertClients(ctx, "dup_name_clients", false, clients)
}

func (s *SQLiteStorage) insertClients(ctx context.Context, table string, orIgnore bool, clients []model.Client) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	verb := "INSERT"
	if orIgnore {
		verb = "INSERT OR IGNORE"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		%s INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, verb, table, clientColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range clients {
		_, err = stmt.ExecContext(ctx,
			c.FullName,
			nullString(c.EmailAddress),
			nullString(c.PhoneMobile),
			nullString(c.PhoneOther),
			nullString(c.Address),
			nullString(c.Address2),
			nullString(c.City),
			nullString(c.StateProvince),
			nullInt(c.ZipPostalCode),
			nullString(c.PrivateNotes),
			nullInt(c.JoistClientID),
			c.IngestedTime,
			nullString(c.Source),
			nullTime(c.JoinDate),
		)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("client %q already in %s: %w", c.FullName, table, common.ErrDuplicateEntry)
			}
			return fmt.Errorf("failed to insert client %q into %s: %w", c.FullName, table, err)
		}
	}

	return tx.Commit()
}

// GetClient retrieves the canonical client row for a name.
func (s *SQLiteStorage) GetClient(ctx context.Context, fullName string) (*model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fullName, "fullName"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE full_name = ?`, fullName)

	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// UpdateJoinDates backfills join_date with the earliest estimate date for
// every client whose ingested_time falls on the given date. Clients with no
// estimates keep a NULL join_date.
func (s *SQLiteStorage) UpdateJoinDates(ctx context.Context, ingestedDate time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE clients
		SET join_date = (
			SELECT MIN(e.date_issued)
			FROM estimates e
			WHERE e.full_name = clients.full_name
		)
		WHERE date(ingested_time) = date(?)
	`, ingestedDate)
	if err != nil {
		return 0, fmt.Errorf("failed to update join dates: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*model.Client, error) {
	var c model.Client
	var email, phoneMobile, phoneOther, address, address2 sql.NullString
	var city, state, notes, source sql.NullString
	var zip, joistID sql.NullInt64
	var joinDate sql.NullTime

	err := row.Scan(
		&c.FullName,
		&email,
		&phoneMobile,
		&phoneOther,
		&address,
		&address2,
		&city,
		&state,
		&zip,
		&notes,
		&joistID,
		&c.IngestedTime,
		&source,
		&joinDate,
	)
	if err != nil {
		return nil, err
	}

	c.EmailAddress = email.String
	c.PhoneMobile = phoneMobile.String
	c.PhoneOther = phoneOther.String
	c.Address = address.String
	c.Address2 = address2.String
	c.City = city.String
	c.StateProvince = state.String
	c.PrivateNotes = notes.String
	c.Source = source.String
	if zip.Valid {
		c.ZipPostalCode = &zip.Int64
	}
	if joistID.Valid {
		c.JoistClientID = &joistID.Int64
	}
	if joinDate.Valid {
		c.JoinDate = &joinDate.Time
	}
	return &c, nil
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// nullDecimal binds a decimal as its exact string form; SQLite's numeric
// affinity converts it for arithmetic.
func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
