// Package ingest sequences one batch through the pipeline: read the export,
// rename columns, clean values, reconcile client identity, persist, and
// report counts. One run handles exactly one entity type and one batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/crivera/joistsync/internal/batch"
	"github.com/crivera/joistsync/internal/mapping"
	"github.com/crivera/joistsync/internal/model"
	"github.com/crivera/joistsync/internal/service"
)

// DefaultSource tags rows created by this pipeline.
const DefaultSource = "joist"

// Result summarizes one ingested batch.
type Result struct {
	File       string
	Dropped    []string
	Backfilled []string
	Elapsed    time.Duration
	RowsRead   int
	RowsSaved  int
	Duplicates int
}

// Ingestor orchestrates ingestion runs against a single storage instance.
type Ingestor struct {
	store      service.Storage
	reconciler *Reconciler
	now        func() time.Time
	source     string
}

// New creates an ingestor. The source tag identifies this pipeline on every
// row it writes.
func New(store service.Storage, source string) *Ingestor {
	if source == "" {
		source = DefaultSource
	}
	return &Ingestor{
		store:      store,
		reconciler: NewReconciler(store, source),
		now:        time.Now,
		source:     source,
	}
}

// IngestClientFile ingests a full client export: first occurrence handling
// is by highest Joist client id, with every other colliding row diverted to
// the duplicate table.
func (ing *Ingestor) IngestClientFile(ctx context.Context, path string, ingestedTime time.Time) (*Result, error) {
	started := ing.now()

	table, err := mapping.Lookup(mapping.Clients, mapping.VariantCurrent)
	if err != nil {
		return nil, err
	}

	b, err := ing.readBatch(path, table)
	if err != nil {
		return nil, err
	}
	prepareBatch(b, table, clientStringColumns)

	clients, dropped := clientsFromBatch(b, ing.source, ingestedTime)
	reportDropped("clients", path, dropped)

	unique, duplicates := splitCollisions(clients)

	if len(unique) > 0 {
		if err := ing.store.SaveClients(ctx, unique); err != nil {
			return nil, fmt.Errorf("failed to save clients from %s: %w", path, err)
		}
	}
	if len(duplicates) > 0 {
		if err := ing.store.SaveDuplicateClients(ctx, duplicates); err != nil {
			return nil, fmt.Errorf("failed to save duplicate clients from %s: %w", path, err)
		}
	}

	res := &Result{
		File:       path,
		RowsRead:   b.Len(),
		RowsSaved:  len(unique),
		Duplicates: len(duplicates),
		Dropped:    dropped,
		Elapsed:    ing.now().Sub(started),
	}
	res.log("clients")
	return res, nil
}

// IngestEstimateFiles ingests one or more estimate exports. Each file is an
// independent unit of work: a failure is logged and the loop continues, but
// the joined error is returned so the run exits non-zero.
func (ing *Ingestor) IngestEstimateFiles(ctx context.Context, paths []string, variant string, ingestedTime time.Time) ([]Result, error) {
	table, err := mapping.Lookup(mapping.Estimates, variant)
	if err != nil {
		return nil, err
	}

	var results []Result
	var errs []error
	bar := fileProgress(len(paths), "Ingesting estimates")
	for _, path := range paths {
		res, fileErr := ing.ingestEstimateFile(ctx, path, table, ingestedTime)
		if fileErr != nil {
			slog.Error("Failed to ingest estimate file", "file", path, "error", fileErr)
			errs = append(errs, fmt.Errorf("%s: %w", path, fileErr))
		} else {
			results = append(results, *res)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return results, errors.Join(errs...)
}

func (ing *Ingestor) ingestEstimateFile(ctx context.Context, path string, table mapping.Table, ingestedTime time.Time) (*Result, error) {
	started := ing.now()

	b, err := ing.readBatch(path, table)
	if err != nil {
		return nil, err
	}
	prepareBatch(b, table, []string{"full_name"})

	estimates, dropped := estimatesFromBatch(b, ing.source, ingestedTime)
	reportDropped("estimates", path, dropped)

	names := make([]string, 0, len(estimates))
	for _, e := range estimates {
		names = append(names, e.FullName)
	}

	backfilled, err := ing.reconciler.EnsureClients(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(backfilled) > 0 {
		slog.Info("Backfilled minimal clients referenced by estimates",
			"count", len(backfilled), "file", path)
	}
	if err := ing.reconciler.VerifyResolved(ctx, "estimates", names); err != nil {
		return nil, err
	}

	if len(estimates) > 0 {
		if err := ing.store.SaveEstimates(ctx, estimates); err != nil {
			return nil, fmt.Errorf("failed to save estimates: %w", err)
		}
	}

	res := &Result{
		File:       path,
		RowsRead:   b.Len(),
		RowsSaved:  len(estimates),
		Dropped:    dropped,
		Backfilled: backfilled,
		Elapsed:    ing.now().Sub(started),
	}
	res.log("estimates")
	return res, nil
}

// IngestInvoiceFiles ingests one or more invoice exports, with the same
// per-file independence as estimates.
func (ing *Ingestor) IngestInvoiceFiles(ctx context.Context, paths []string, ingestedTime time.Time) ([]Result, error) {
	table, err := mapping.Lookup(mapping.Invoices, mapping.VariantCurrent)
	if err != nil {
		return nil, err
	}

	var results []Result
	var errs []error
	bar := fileProgress(len(paths), "Ingesting invoices")
	for _, path := range paths {
		res, fileErr := ing.ingestInvoiceFile(ctx, path, table, ingestedTime)
		if fileErr != nil {
			slog.Error("Failed to ingest invoice file", "file", path, "error", fileErr)
			errs = append(errs, fmt.Errorf("%s: %w", path, fileErr))
		} else {
			results = append(results, *res)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return results, errors.Join(errs...)
}

func (ing *Ingestor) ingestInvoiceFile(ctx context.Context, path string, table mapping.Table, ingestedTime time.Time) (*Result, error) {
	started := ing.now()

	b, err := ing.readBatch(path, table)
	if err != nil {
		return nil, err
	}
	prepareBatch(b, table, []string{"full_name"})

	invoices, dropped := invoicesFromBatch(b, ing.source, ingestedTime)
	reportDropped("invoices", path, dropped)

	names := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		names = append(names, inv.FullName)
	}

	backfilled, err := ing.reconciler.EnsureClients(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(backfilled) > 0 {
		slog.Info("Backfilled minimal clients referenced by invoices",
			"count", len(backfilled), "file", path)
	}
	if err := ing.reconciler.VerifyResolved(ctx, "invoices", names); err != nil {
		return nil, err
	}

	if len(invoices) > 0 {
		if err := ing.store.SaveInvoices(ctx, invoices); err != nil {
			return nil, fmt.Errorf("failed to save invoices: %w", err)
		}
	}

	res := &Result{
		File:       path,
		RowsRead:   b.Len(),
		RowsSaved:  len(invoices),
		Dropped:    dropped,
		Backfilled: backfilled,
		Elapsed:    ing.now().Sub(started),
	}
	res.log("invoices")
	return res, nil
}

// MonthResult summarizes one monthly ingestion run.
type MonthResult struct {
	Reconciliation *ExportReconciliation
	Estimates      *Result
	Invoices       *Result
}

// IngestMonth runs the monthly flow: reconcile the client export against the
// month's estimates to discover new clients, then ingest the estimates, then
// the invoices. Clients go first so the estimate and invoice rows always
// land with their names resolvable.
func (ing *Ingestor) IngestMonth(ctx context.Context, estimatesPath, clientsExportPath, invoicesPath, variant string, ingestionDate time.Time) (*MonthResult, error) {
	estTable, err := mapping.Lookup(mapping.Estimates, variant)
	if err != nil {
		return nil, err
	}
	clientTable, err := mapping.Lookup(mapping.Clients, mapping.VariantCurrent)
	if err != nil {
		return nil, err
	}

	estBatch, err := ing.readBatch(estimatesPath, estTable)
	if err != nil {
		return nil, err
	}
	prepareBatch(estBatch, estTable, []string{"full_name"})
	estimates, estDropped := estimatesFromBatch(estBatch, ing.source, ingestionDate)
	reportDropped("estimates", estimatesPath, estDropped)

	exportBatch, err := ing.readBatch(clientsExportPath, clientTable)
	if err != nil {
		return nil, err
	}
	prepareBatch(exportBatch, clientTable, clientStringColumns)
	export, exportDropped := clientsFromBatch(exportBatch, ing.source, ingestionDate)
	reportDropped("clients", clientsExportPath, exportDropped)

	recon, err := ing.reconciler.ReconcileExport(ctx, estimates, export, ingestionDate)
	if err != nil {
		return nil, err
	}
	slog.Info("Reconciled client export against new estimates",
		"inserted", len(recon.Inserted),
		"duplicates", len(recon.Duplicates),
		"orphaned", len(recon.Orphaned),
		"case_mismatches", len(recon.CaseMismatches))
	for _, name := range recon.Orphaned {
		slog.Warn("Orphaned estimates: client not resolvable from any source", "full_name", name)
	}

	result := &MonthResult{Reconciliation: recon}

	estResults, err := ing.IngestEstimateFiles(ctx, []string{estimatesPath}, variant, ingestionDate)
	if err != nil {
		return nil, err
	}
	result.Estimates = &estResults[0]

	if invoicesPath != "" {
		invResults, err := ing.IngestInvoiceFiles(ctx, []string{invoicesPath}, ingestionDate)
		if err != nil {
			return nil, err
		}
		result.Invoices = &invResults[0]
	}

	return result, nil
}

// readBatch reads one export file, surfacing the first lines of the file
// when parsing fails so the malformed input can be diagnosed.
func (ing *Ingestor) readBatch(path string, table mapping.Table) (*batch.Batch, error) {
	b, head, err := batch.ReadFile(path, table.Comma)
	if err != nil {
		for i, line := range head {
			slog.Error("Offending file content", "line", i+1, "text", line)
		}
		return nil, err
	}
	slog.Info("Read export file", "file", filepath.Base(path), "rows", b.Len(), "entity", table.Entity)
	return b, nil
}

// splitCollisions partitions client rows into one canonical row per name and
// the colliding rest. Among rows sharing a name the highest Joist client id
// is canonical; the others are kept for manual review.
func splitCollisions(clients []model.Client) (unique, duplicates []model.Client) {
	byName := make(map[string][]model.Client)
	var order []string
	for _, c := range clients {
		if _, ok := byName[c.FullName]; !ok {
			order = append(order, c.FullName)
		}
		byName[c.FullName] = append(byName[c.FullName], c)
	}

	for _, name := range order {
		group := byName[name]
		if len(group) == 1 {
			unique = append(unique, group[0])
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return higherID(group[i], group[j]) })
		unique = append(unique, group[0])
		duplicates = append(duplicates, group[1:]...)
	}
	return unique, duplicates
}

// fileProgress returns a progress bar for multi-file runs, nil otherwise.
func fileProgress(n int, description string) *progressbar.ProgressBar {
	if n < 2 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
	)
}

func (r *Result) log(entity string) {
	slog.Info("Ingested batch",
		"entity", entity,
		"file", filepath.Base(r.File),
		"rows_read", r.RowsRead,
		"rows_saved", r.RowsSaved,
		"rows_dropped", len(r.Dropped),
		"duplicates", r.Duplicates,
		"backfilled", len(r.Backfilled),
		"elapsed", r.Elapsed.Round(time.Millisecond))
}
