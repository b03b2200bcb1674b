package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crivera/joistsync/internal/common"
	"github.com/crivera/joistsync/internal/mapping"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

const clientExportHeader = "Name\tEmail Address\tPhone (mobile)\tPhone (other)\tAddress\tAddress 2\tCity\tState / Province\tZip / Postal Code\tPrivate Notes\t**(Do not change this) Joist Client ID\n"

func TestIngestClientFile(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	path := writeTestFile(t, "clients.txt", clientExportHeader+
		"Jane Doe\tjane@example.com\t555-1234\t\t1 Main St\t\tSpringfield\tIL\t62704\tnotes\t5\n"+
		"Jane Doe\tjane.new@example.com\t\t\t\t\t\t\t\t\t9\n"+
		"Bob Roe\tbob@example.com\t\t\t\t\t\t\t\t\t2\n"+
		"\t\t\t\t\t\t\t\t\t\t3\n")

	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	res, err := ing.IngestClientFile(ctx, path, stamp)
	if err != nil {
		t.Fatalf("IngestClientFile() error = %v", err)
	}

	if res.RowsRead != 4 {
		t.Errorf("RowsRead = %d, want 4", res.RowsRead)
	}
	if res.RowsSaved != 2 {
		t.Errorf("RowsSaved = %d, want 2", res.RowsSaved)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want the losing Jane Doe row", res.Duplicates)
	}
	if len(res.Dropped) != 1 {
		t.Errorf("Dropped = %v, want the blank-name row", res.Dropped)
	}

	// Highest Joist id wins the name collision.
	got, err := store.GetClient(ctx, "Jane Doe")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.JoistClientID == nil || *got.JoistClientID != 9 {
		t.Errorf("JoistClientID = %v, want 9", got.JoistClientID)
	}
	if got.EmailAddress != "jane.new@example.com" {
		t.Errorf("EmailAddress = %q, want the canonical row's email", got.EmailAddress)
	}
}

func TestIngestEstimateFilesBackfillsClients(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	path := writeTestFile(t, "estimates.csv",
		"Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created\n"+
			"101,Jane Doe,140.00,10.00,150.00,2024-03-10,2024-03-08\n"+
			"102,,10.00,0.00,10.00,2024-03-11,2024-03-09\n")

	stamp := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	results, err := ing.IngestEstimateFiles(ctx, []string{path}, mapping.VariantCurrent, stamp)
	if err != nil {
		t.Fatalf("IngestEstimateFiles() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	res := results[0]
	if res.RowsSaved != 1 {
		t.Errorf("RowsSaved = %d, want 1", res.RowsSaved)
	}
	if len(res.Dropped) != 1 {
		t.Errorf("Dropped = %v, want the nameless row", res.Dropped)
	}
	if len(res.Backfilled) != 1 || res.Backfilled[0] != "Jane Doe" {
		t.Errorf("Backfilled = %v, want [Jane Doe]", res.Backfilled)
	}

	// No orphans: the referenced client now exists.
	got, err := store.GetClient(ctx, "Jane Doe")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.Source != "joist" {
		t.Errorf("Source = %q, want joist", got.Source)
	}

	count, err := store.CountEstimates(ctx)
	if err != nil {
		t.Fatalf("CountEstimates() error = %v", err)
	}
	if count != 1 {
		t.Errorf("estimate count = %d, want 1", count)
	}
}

func TestIngestEstimateFiles2024Variant(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	path := writeTestFile(t, "estimates_2024.csv",
		"Estimate #,Client Name,Subtotal,Sales tax,Total,Date Issued,Date Created\n"+
			"201,Old Format,90.00,5.00,95.00,2024-01-10,2024-01-08\n")

	stamp := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	results, err := ing.IngestEstimateFiles(ctx, []string{path}, mapping.Variant2024, stamp)
	if err != nil {
		t.Fatalf("IngestEstimateFiles() error = %v", err)
	}
	if results[0].RowsSaved != 1 {
		t.Errorf("RowsSaved = %d, want 1", results[0].RowsSaved)
	}
}

func TestIngestInvoiceFiles(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	path := writeTestFile(t, "invoices.csv",
		"Invoice #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created,Payment Received Less Refunds\n"+
			"7,Jane Doe,280.00,20.00,$300.00,2024-03-20,2024-03-18,300.00\n"+
			"8,Bob Roe,50.00,0.00,50.00,2024-03-21,2024-03-19,\n")

	stamp := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	results, err := ing.IngestInvoiceFiles(ctx, []string{path}, stamp)
	if err != nil {
		t.Fatalf("IngestInvoiceFiles() error = %v", err)
	}

	res := results[0]
	if res.RowsSaved != 2 {
		t.Errorf("RowsSaved = %d, want 2", res.RowsSaved)
	}
	if len(res.Backfilled) != 2 {
		t.Errorf("Backfilled = %v, want both clients", res.Backfilled)
	}

	count, err := store.CountInvoices(ctx)
	if err != nil {
		t.Fatalf("CountInvoices() error = %v", err)
	}
	if count != 2 {
		t.Errorf("invoice count = %d, want 2", count)
	}
}

func TestIngestFileErrors(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// A missing file fails with the sentinel, but a good file alongside it
	// still lands.
	good := writeTestFile(t, "good.csv",
		"Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created\n"+
			"101,Jane Doe,10.00,0.00,10.00,2024-03-10,2024-03-08\n")

	results, err := ing.IngestEstimateFiles(ctx, []string{"/nonexistent/file.csv", good}, mapping.VariantCurrent, stamp)
	if !errors.Is(err, common.ErrFileMissing) {
		t.Errorf("error = %v, want ErrFileMissing", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want the good file ingested", len(results))
	}

	count, _ := store.CountEstimates(ctx)
	if count != 1 {
		t.Errorf("estimate count = %d, want 1", count)
	}
}

func TestIngestMonth(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	estimates := writeTestFile(t, "estimates.csv",
		"Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created\n"+
			"101,Jane Doe,140.00,10.00,150.00,2024-03-10,2024-03-08\n"+
			"102,Ghost Client,10.00,0.00,10.00,2024-03-11,2024-03-09\n")

	clients := writeTestFile(t, "clients.txt", clientExportHeader+
		"Jane Doe\tjane@example.com\t\t\t\t\t\t\t\t\t5\n"+
		"Jane Doe\tjane.new@example.com\t\t\t\t\t\t\t\t\t9\n")

	invoices := writeTestFile(t, "invoices.csv",
		"Invoice #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created,Payment Received Less Refunds\n"+
			"7,Jane Doe,140.00,10.00,150.00,2024-03-20,2024-03-18,150.00\n")

	date := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	res, err := ing.IngestMonth(ctx, estimates, clients, invoices, mapping.VariantCurrent, date)
	if err != nil {
		t.Fatalf("IngestMonth() error = %v", err)
	}

	recon := res.Reconciliation
	if len(recon.Inserted) != 1 || recon.Inserted[0].FullName != "Jane Doe" {
		t.Fatalf("inserted = %v, want Jane Doe", recon.Inserted)
	}
	if id := recon.Inserted[0].JoistClientID; id == nil || *id != 9 {
		t.Errorf("canonical id = %v, want 9", id)
	}
	if len(recon.Orphaned) != 1 || recon.Orphaned[0] != "Ghost Client" {
		t.Errorf("orphaned = %v, want Ghost Client", recon.Orphaned)
	}

	// The estimate phase backfills the orphan so its rows still land.
	if res.Estimates.RowsSaved != 2 {
		t.Errorf("estimates saved = %d, want 2", res.Estimates.RowsSaved)
	}
	if len(res.Estimates.Backfilled) != 1 || res.Estimates.Backfilled[0] != "Ghost Client" {
		t.Errorf("backfilled = %v, want [Ghost Client]", res.Estimates.Backfilled)
	}
	if res.Invoices == nil || res.Invoices.RowsSaved != 1 {
		t.Errorf("invoices = %+v, want 1 saved", res.Invoices)
	}

	// Join date on the new client comes from the earliest estimate.
	got, err := store.GetClient(ctx, "Jane Doe")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	want := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	if got.JoinDate == nil || !got.JoinDate.Equal(want) {
		t.Errorf("JoinDate = %v, want %v", got.JoinDate, want)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	store := newTestStore(t)
	ing := New(store, "joist")
	ctx := context.Background()

	path := writeTestFile(t, "estimates.csv",
		"Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created\n"+
			"101,Jane Doe,140.00,10.00,150.00,2024-03-10,2024-03-08\n")

	res, err := ing.Preview(mapping.Estimates, mapping.VariantCurrent, path)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if res.RowsSaved != 1 {
		t.Errorf("RowsSaved = %d, want 1 convertible row", res.RowsSaved)
	}

	count, err := store.CountEstimates(ctx)
	if err != nil {
		t.Fatalf("CountEstimates() error = %v", err)
	}
	if count != 0 {
		t.Errorf("estimate count = %d, preview must not write", count)
	}

	names, err := store.ListClientNames(ctx)
	if err != nil {
		t.Fatalf("ListClientNames() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("clients = %v, preview must not backfill", names)
	}
}
