package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crivera/joistsync/internal/model"
)

// validEmail is the shared email-quality predicate: no second @, no commas,
// no spaces, no characters outside the address alphabet. Postgres used a
// regex here; GLOB is the SQLite equivalent.
const validEmail = `c.email_address IS NOT NULL
		AND c.email_address != ''
		AND c.email_address NOT LIKE '%@%@%'
		AND c.email_address NOT LIKE '%,%'
		AND c.email_address NOT LIKE '% %'
		AND c.email_address NOT GLOB '*[^a-zA-Z0-9.@_-]*'`

// CustomerEmails returns name and email for every client with at least one
// invoice and a valid email address.
func (s *SQLiteStorage) CustomerEmails(ctx context.Context) ([]model.ClientEmail, error) {
	return s.queryEmails(ctx, `
		SELECT DISTINCT c.full_name, c.email_address
		FROM clients c
		JOIN invoices i ON c.full_name = i.full_name
		WHERE `+validEmail+`
		ORDER BY c.full_name
	`)
}

// LeadEmails returns name and email for every client with an estimate but no
// invoice and a valid email address.
func (s *SQLiteStorage) LeadEmails(ctx context.Context) ([]model.ClientEmail, error) {
	return s.queryEmails(ctx, `
		SELECT DISTINCT c.full_name, c.email_address
		FROM clients c
		JOIN estimates e ON c.full_name = e.full_name
		LEFT JOIN invoices i ON c.full_name = i.full_name
		WHERE i.full_name IS NULL
		AND `+validEmail+`
		ORDER BY c.full_name
	`)
}

// AllClientEmails returns name and email for every client with a valid email.
func (s *SQLiteStorage) AllClientEmails(ctx context.Context) ([]model.ClientEmail, error) {
	return s.queryEmails(ctx, `
		SELECT DISTINCT c.full_name, c.email_address
		FROM clients c
		WHERE `+validEmail+`
		ORDER BY c.full_name
	`)
}

func (s *SQLiteStorage) queryEmails(ctx context.Context, query string) ([]model.ClientEmail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClientEmail
	for rows.Next() {
		var ce model.ClientEmail
		if err := rows.Scan(&ce.FullName, &ce.EmailAddress); err != nil {
			return nil, fmt.Errorf("failed to scan email row: %w", err)
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

// ClientsWithoutEmail returns the full rows of clients with no email address.
func (s *SQLiteStorage) ClientsWithoutEmail(ctx context.Context) ([]model.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE email_address IS NULL OR email_address = ''
		ORDER BY full_name
	`)
}

// ClientsWithEmailIssues returns clients whose email carries commas, spaces,
// or characters outside the address alphabet.
func (s *SQLiteStorage) ClientsWithEmailIssues(ctx context.Context) ([]model.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE email_address IS NOT NULL
		AND email_address != ''
		AND (
			email_address LIKE '%,%'
			OR email_address LIKE '% %'
			OR email_address GLOB '*[^a-zA-Z0-9.@_-]*'
		)
		ORDER BY full_name
	`)
}

// ClientsWithMultipleEmails returns clients whose email field holds more
// than one address (a second @ sign).
func (s *SQLiteStorage) ClientsWithMultipleEmails(ctx context.Context) ([]model.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE email_address IS NOT NULL
		AND email_address LIKE '%@%@%'
		ORDER BY full_name
	`)
}

func (s *SQLiteStorage) queryClients(ctx context.Context, query string) ([]model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ClientsJoinedPerMonth counts clients by join_date month.
func (s *SQLiteStorage) ClientsJoinedPerMonth(ctx context.Context) ([]model.MonthlyCount, error) {
	return s.queryMonthlyCounts(ctx, `
		SELECT strftime('%Y-%m', join_date) AS month, COUNT(*)
		FROM clients
		WHERE join_date IS NOT NULL
		GROUP BY month
		ORDER BY month
	`)
}

// EstimatesPerMonth counts estimates by issue month.
func (s *SQLiteStorage) EstimatesPerMonth(ctx context.Context) ([]model.MonthlyCount, error) {
	return s.queryMonthlyCounts(ctx, `
		SELECT strftime('%Y-%m', date_issued) AS month, COUNT(*)
		FROM estimates
		WHERE date_issued IS NOT NULL
		GROUP BY month
		ORDER BY month
	`)
}

// InvoicesPerMonth counts invoices by issue month.
func (s *SQLiteStorage) InvoicesPerMonth(ctx context.Context) ([]model.MonthlyCount, error) {
	return s.queryMonthlyCounts(ctx, `
		SELECT strftime('%Y-%m', date_issued) AS month, COUNT(*)
		FROM invoices
		WHERE date_issued IS NOT NULL
		GROUP BY month
		ORDER BY month
	`)
}

func (s *SQLiteStorage) queryMonthlyCounts(ctx context.Context, query string) ([]model.MonthlyCount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MonthlyCount
	for rows.Next() {
		var mc model.MonthlyCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// InvoiceTotalsPerMonth sums invoice totals by issue month.
func (s *SQLiteStorage) InvoiceTotalsPerMonth(ctx context.Context) ([]model.MonthlyTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', date_issued) AS month, SUM(total)
		FROM invoices
		WHERE date_issued IS NOT NULL
		GROUP BY month
		ORDER BY month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MonthlyTotal
	for rows.Next() {
		var mt model.MonthlyTotal
		var total sql.NullFloat64
		if err := rows.Scan(&mt.Month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan invoice total: %w", err)
		}
		if total.Valid {
			mt.Total = decimal.NewFromFloat(total.Float64)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

// ClientInvoiceValues returns per-client, per-month summed invoice values,
// highest or lowest first. The LIMIT applies to the whole result, matching
// the historical report, not per month.
func (s *SQLiteStorage) ClientInvoiceValues(ctx context.Context, limit int, ascending bool) ([]model.ClientMonthValue, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	order := "DESC"
	having := ""
	if ascending {
		order = "ASC"
		// Zero-value invoices would otherwise dominate the bottom ranking.
		having = "HAVING SUM(i.total) > 0"
	}

	query := fmt.Sprintf(`
		SELECT strftime('%%Y-%%m', i.date_issued) AS month, c.full_name, SUM(i.total) AS total_value
		FROM invoices i
		JOIN clients c ON i.full_name = c.full_name
		WHERE i.date_issued IS NOT NULL
		GROUP BY month, c.full_name
		%s
		ORDER BY month, total_value %s
		LIMIT ?
	`, having, order)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query client invoice values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClientMonthValue
	for rows.Next() {
		var cv model.ClientMonthValue
		var total sql.NullFloat64
		if err := rows.Scan(&cv.Month, &cv.FullName, &total); err != nil {
			return nil, fmt.Errorf("failed to scan client invoice value: %w", err)
		}
		if total.Valid {
			cv.Total = decimal.NewFromFloat(total.Float64)
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
