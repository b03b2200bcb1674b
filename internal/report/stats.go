package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/crivera/joistsync/internal/model"
)

// Stats bundles the monthly activity aggregates.
type Stats struct {
	ClientsJoined []model.MonthlyCount
	Estimates     []model.MonthlyCount
	Invoices      []model.MonthlyCount
	InvoiceTotals []model.MonthlyTotal
	TopClients    []model.ClientMonthValue
	BottomClients []model.ClientMonthValue
}

// clientValueLimit caps the top and bottom clients-by-invoice-value extracts.
const clientValueLimit = 5

// CollectStats runs every monthly aggregate query.
func (e *Exporter) CollectStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	var err error

	if s.ClientsJoined, err = e.store.ClientsJoinedPerMonth(ctx); err != nil {
		return nil, fmt.Errorf("failed to query clients joined per month: %w", err)
	}
	if s.Estimates, err = e.store.EstimatesPerMonth(ctx); err != nil {
		return nil, fmt.Errorf("failed to query estimates per month: %w", err)
	}
	if s.Invoices, err = e.store.InvoicesPerMonth(ctx); err != nil {
		return nil, fmt.Errorf("failed to query invoices per month: %w", err)
	}
	if s.InvoiceTotals, err = e.store.InvoiceTotalsPerMonth(ctx); err != nil {
		return nil, fmt.Errorf("failed to query invoice totals per month: %w", err)
	}
	if s.TopClients, err = e.store.ClientInvoiceValues(ctx, clientValueLimit, false); err != nil {
		return nil, fmt.Errorf("failed to query top client invoice values: %w", err)
	}
	if s.BottomClients, err = e.store.ClientInvoiceValues(ctx, clientValueLimit, true); err != nil {
		return nil, fmt.Errorf("failed to query bottom client invoice values: %w", err)
	}
	return s, nil
}

// WriteCSV writes each aggregate as its own CSV under dir.
func (s *Stats) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	counts := []struct {
		name string
		rows []model.MonthlyCount
	}{
		{"clients_joined_per_month", s.ClientsJoined},
		{"estimates_per_month", s.Estimates},
		{"invoices_per_month", s.Invoices},
	}
	for _, c := range counts {
		if err := writeCountsCSV(filepath.Join(dir, c.name+".csv"), c.rows); err != nil {
			return err
		}
	}
	if err := writeTotalsCSV(filepath.Join(dir, "invoice_totals_per_month.csv"), s.InvoiceTotals); err != nil {
		return err
	}
	if err := writeClientValuesCSV(filepath.Join(dir, "top_clients_by_invoice_value.csv"), s.TopClients); err != nil {
		return err
	}
	return writeClientValuesCSV(filepath.Join(dir, "bottom_clients_by_invoice_value.csv"), s.BottomClients)
}

func writeCountsCSV(path string, rows []model.MonthlyCount) error {
	return writeCSVFile(path, []string{"month", "count"}, len(rows), func(i int) []string {
		return []string{rows[i].Month, strconv.FormatInt(rows[i].Count, 10)}
	})
}

func writeTotalsCSV(path string, rows []model.MonthlyTotal) error {
	return writeCSVFile(path, []string{"month", "total"}, len(rows), func(i int) []string {
		return []string{rows[i].Month, rows[i].Total.StringFixed(2)}
	})
}

func writeClientValuesCSV(path string, rows []model.ClientMonthValue) error {
	return writeCSVFile(path, []string{"full_name", "month", "total"}, len(rows), func(i int) []string {
		return []string{rows[i].FullName, rows[i].Month, rows[i].Total.StringFixed(2)}
	})
}

func writeCSVFile(path string, header []string, n int, record func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
