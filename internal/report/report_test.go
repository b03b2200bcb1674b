package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crivera/joistsync/internal/model"
	"github.com/crivera/joistsync/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedStore(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	clients := []model.Client{
		{FullName: "Customer One", EmailAddress: "customer@example.com", IngestedTime: stamp, Source: "joist"},
		{FullName: "Customer Two", EmailAddress: "customer@example.com", IngestedTime: stamp, Source: "joist"},
		{FullName: "Lead One", EmailAddress: "lead@example.com", IngestedTime: stamp, Source: "joist"},
		{FullName: "No Email", IngestedTime: stamp, Source: "joist"},
	}
	require.NoError(t, store.SaveClients(ctx, clients))

	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	total := decimal.NullDecimal{Decimal: decimal.RequireFromString("150.00"), Valid: true}

	require.NoError(t, store.SaveEstimates(ctx, []model.Estimate{
		{EstimateNumber: 101, FullName: "Lead One", Total: total, DateIssued: &march, IngestedTime: stamp, Source: "joist"},
	}))
	require.NoError(t, store.SaveInvoices(ctx, []model.Invoice{
		{InvoiceNumber: 7, FullName: "Customer One", Total: total, DateIssued: &march, IngestedTime: stamp, Source: "joist"},
		{InvoiceNumber: 8, FullName: "Customer Two", Total: total, DateIssued: &april, IngestedTime: stamp, Source: "joist"},
	}))
}

func TestExportEmailsDeduplicatesByAddress(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	exporter := NewExporter(store)

	var buf bytes.Buffer
	n, err := exporter.ExportEmails(context.Background(), SetCustomers, &buf)
	require.NoError(t, err)

	// Both customers share one mailbox; only the first row survives.
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"full_name", "email_address"}, records[0])
	assert.Equal(t, []string{"Customer One", "customer@example.com"}, records[1])
}

func TestExportEmailsLeads(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	exporter := NewExporter(store)

	var buf bytes.Buffer
	n, err := exporter.ExportEmails(context.Background(), SetLeads, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "Lead One")
}

func TestExportEmailsQualitySet(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	exporter := NewExporter(store)

	var buf bytes.Buffer
	n, err := exporter.ExportEmails(context.Background(), SetNoEmail, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "No Email", records[1][0])
}

func TestExportEmailsUnknownSet(t *testing.T) {
	exporter := NewExporter(newTestStore(t))
	var buf bytes.Buffer
	_, err := exporter.ExportEmails(context.Background(), Set("bogus"), &buf)
	assert.Error(t, err)
}

func TestCollectStatsAndWriteCSV(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	stats, err := NewExporter(store).CollectStats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats.Invoices, 2)
	assert.Len(t, stats.Estimates, 1)
	assert.Len(t, stats.InvoiceTotals, 2)

	dir := filepath.Join(t.TempDir(), "stats")
	require.NoError(t, stats.WriteCSV(dir))

	for _, name := range []string{
		"clients_joined_per_month.csv",
		"estimates_per_month.csv",
		"invoices_per_month.csv",
		"invoice_totals_per_month.csv",
		"top_clients_by_invoice_value.csv",
		"bottom_clients_by_invoice_value.csv",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "invoice_totals_per_month.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-03,150.00")
}

func TestRenderCharts(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	stats, err := NewExporter(store).CollectStats(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "charts")
	require.NoError(t, stats.RenderCharts(dir, nil))

	info, err := os.Stat(filepath.Join(dir, "invoice_totals_per_month.png"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderChartsNoMatchingYear(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	stats, err := NewExporter(store).CollectStats(context.Background())
	require.NoError(t, err)

	// A year with no data produces no chart, not an error.
	dir := filepath.Join(t.TempDir(), "charts")
	require.NoError(t, stats.RenderCharts(dir, []int{1999}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
