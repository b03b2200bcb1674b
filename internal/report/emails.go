// Package report produces the CSV extracts and charts derived from the
// ingested data: email lists for outreach, data-quality extracts, and
// monthly activity statistics.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/crivera/joistsync/internal/model"
	"github.com/crivera/joistsync/internal/service"
)

// Set names an email extract.
type Set string

// Supported email extracts. The first three are outreach lists restricted to
// valid addresses; the last three are data-quality extracts of the rows the
// outreach lists exclude.
const (
	SetCustomers Set = "customers"
	SetLeads     Set = "leads"
	SetAll       Set = "all"
	SetNoEmail   Set = "no-email"
	SetIssues    Set = "issues"
	SetMultiple  Set = "multiple"
)

// Sets lists the supported extract names in display order.
func Sets() []Set {
	return []Set{SetCustomers, SetLeads, SetAll, SetNoEmail, SetIssues, SetMultiple}
}

// Exporter runs report queries and writes their results.
type Exporter struct {
	store service.Storage
}

// NewExporter creates an exporter backed by the given storage.
func NewExporter(store service.Storage) *Exporter {
	return &Exporter{store: store}
}

// ExportEmails writes one extract as CSV and returns the number of data rows
// written. Outreach extracts are deduplicated by address, keeping the first
// row per address so each mailbox is contacted once.
func (e *Exporter) ExportEmails(ctx context.Context, set Set, w io.Writer) (int, error) {
	switch set {
	case SetCustomers, SetLeads, SetAll:
		rows, err := e.emailList(ctx, set)
		if err != nil {
			return 0, err
		}
		return writeEmailList(w, dedupeByAddress(rows))
	case SetNoEmail, SetIssues, SetMultiple:
		rows, err := e.qualityList(ctx, set)
		if err != nil {
			return 0, err
		}
		return writeClientDetails(w, rows)
	default:
		return 0, fmt.Errorf("unknown email set %q", set)
	}
}

func (e *Exporter) emailList(ctx context.Context, set Set) ([]model.ClientEmail, error) {
	switch set {
	case SetCustomers:
		return e.store.CustomerEmails(ctx)
	case SetLeads:
		return e.store.LeadEmails(ctx)
	default:
		return e.store.AllClientEmails(ctx)
	}
}

func (e *Exporter) qualityList(ctx context.Context, set Set) ([]model.Client, error) {
	switch set {
	case SetNoEmail:
		return e.store.ClientsWithoutEmail(ctx)
	case SetIssues:
		return e.store.ClientsWithEmailIssues(ctx)
	default:
		return e.store.ClientsWithMultipleEmails(ctx)
	}
}

// dedupeByAddress keeps the first row per address, preserving order.
func dedupeByAddress(rows []model.ClientEmail) []model.ClientEmail {
	seen := make(map[string]bool, len(rows))
	out := make([]model.ClientEmail, 0, len(rows))
	for _, r := range rows {
		if seen[r.EmailAddress] {
			continue
		}
		seen[r.EmailAddress] = true
		out = append(out, r)
	}
	if dropped := len(rows) - len(out); dropped > 0 {
		slog.Info("Deduplicated shared email addresses", "dropped", dropped)
	}
	return out
}

func writeEmailList(w io.Writer, rows []model.ClientEmail) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"full_name", "email_address"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.FullName, r.EmailAddress}); err != nil {
			return 0, fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

func writeClientDetails(w io.Writer, rows []model.Client) (int, error) {
	cw := csv.NewWriter(w)
	header := []string{
		"full_name", "email_address", "phone_mobile", "phone_other",
		"city", "state_province",
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range rows {
		record := []string{
			c.FullName, c.EmailAddress, c.PhoneMobile, c.PhoneOther,
			c.City, c.StateProvince,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}
