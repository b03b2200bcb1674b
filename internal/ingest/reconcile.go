package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crivera/joistsync/internal/clean"
	"github.com/crivera/joistsync/internal/common"
	"github.com/crivera/joistsync/internal/model"
	"github.com/crivera/joistsync/internal/service"
)

// Reconciler resolves the client names referenced by a batch against the
// persisted client identity space. Its contract is uniform across all
// pipelines: backfill first, persist second, and never let a batch row be
// persisted pointing at a name absent from the clients table.
type Reconciler struct {
	store  service.Storage
	now    func() time.Time
	source string
}

// NewReconciler creates a reconciler tagging synthesized clients with source.
func NewReconciler(store service.Storage, source string) *Reconciler {
	return &Reconciler{
		store:  store,
		source: source,
		now:    time.Now,
	}
}

// EnsureClients backfills a minimal client row for every referenced name
// missing from the clients table. Blank names are excluded; the insert is
// idempotent, so re-running the backfill for an existing name is a no-op.
// Returns the names actually synthesized.
func (r *Reconciler) EnsureClients(ctx context.Context, names []string) ([]string, error) {
	existing, err := r.store.ListClientNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing client names: %w", err)
	}

	existingSet := make(map[string]bool, len(existing))
	casefold := make(map[string]string, len(existing))
	for _, n := range existing {
		existingSet[n] = true
		casefold[model.NormalizedName(n)] = n
	}

	var missing []string
	seen := make(map[string]bool)
	for _, name := range names {
		if clean.Blank(name) || existingSet[name] || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)

		// A casefold hit against a differently-cased existing name is a
		// data-quality warning, not a merge.
		if other, ok := casefold[model.NormalizedName(name)]; ok && other != name {
			common.LogWarn("Potential case mismatch for full_name", common.Fields{
				"incoming": name,
				"existing": other,
			})
		}
	}
	sort.Strings(missing)

	if len(missing) == 0 {
		return nil, nil
	}

	stamp := r.now()
	minimal := make([]model.Client, 0, len(missing))
	for _, name := range missing {
		minimal = append(minimal, model.MinimalClient(name, r.source, stamp))
	}
	if err := r.store.InsertMinimalClients(ctx, minimal); err != nil {
		return nil, fmt.Errorf("failed to backfill %d clients: %w", len(minimal), err)
	}
	return missing, nil
}

// VerifyResolved checks the no-orphan post-condition: every given name must
// now exist in the clients table. A violation means the reconciliation step
// itself is broken, so it is fatal and carries the full offending list.
func (r *Reconciler) VerifyResolved(ctx context.Context, entity string, names []string) error {
	distinct := distinctNames(names)
	existing, err := r.store.ClientNamesExisting(ctx, distinct)
	if err != nil {
		return fmt.Errorf("failed to verify resolved names: %w", err)
	}

	var unresolved []string
	for _, name := range distinct {
		if !existing[name] {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		return &common.UnresolvedNamesError{Entity: entity, Names: unresolved}
	}
	return nil
}

// ExportReconciliation is the outcome of matching an estimates batch and a
// full client export against the persisted client table.
type ExportReconciliation struct {
	Inserted       []model.Client
	Duplicates     []model.Client
	Orphaned       []string
	CaseMismatches []string
}

// ReconcileExport discovers which estimate clients are genuinely new and can
// be filled in from the all-time client export.
//
// The export contains duplicate names; among rows sharing a name the one
// with the highest Joist client id is canonical (the estimate connects to
// the most recent client record) and the rest are diverted to the duplicate
// table. Names referenced by estimates but absent from both the database and
// the export are orphaned: they are reported, not auto-created here. Only
// names present in the estimates and the export, and absent from the
// database, are inserted, with join_date set to the earliest estimate date.
func (r *Reconciler) ReconcileExport(ctx context.Context, estimates []model.Estimate, export []model.Client, ingestionDate time.Time) (*ExportReconciliation, error) {
	dbNames, err := r.store.ListClientNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing client names: %w", err)
	}
	dbSet := make(map[string]bool, len(dbNames))
	for _, n := range dbNames {
		dbSet[n] = true
	}

	canonical, losers := dedupeByHighestID(export)

	// Earliest estimate creation date per name.
	joinDates := make(map[string]time.Time)
	estimateNames := make(map[string]bool)
	for _, e := range estimates {
		if clean.Blank(e.FullName) {
			continue
		}
		estimateNames[e.FullName] = true
		if e.DateCreated == nil {
			continue
		}
		if cur, ok := joinDates[e.FullName]; !ok || e.DateCreated.Before(cur) {
			joinDates[e.FullName] = *e.DateCreated
		}
	}

	result := &ExportReconciliation{}

	casefold := make(map[string]string, len(dbNames)+len(canonical))
	for _, n := range dbNames {
		casefold[model.NormalizedName(n)] = n
	}
	for n := range canonical {
		if _, ok := casefold[model.NormalizedName(n)]; !ok {
			casefold[model.NormalizedName(n)] = n
		}
	}

	var newNames []string
	for name := range estimateNames {
		if !dbSet[name] {
			newNames = append(newNames, name)
		}
	}
	sort.Strings(newNames)

	for _, name := range newNames {
		if other, ok := casefold[model.NormalizedName(name)]; ok && other != name {
			result.CaseMismatches = append(result.CaseMismatches, name)
		}

		c, inExport := canonical[name]
		if !inExport {
			result.Orphaned = append(result.Orphaned, name)
			continue
		}

		c.IngestedTime = ingestionDate
		c.Source = r.source
		if jd, ok := joinDates[name]; ok {
			d := jd
			c.JoinDate = &d
		}
		result.Inserted = append(result.Inserted, c)

		for _, dup := range losers[name] {
			dup.IngestedTime = ingestionDate
			dup.Source = r.source
			result.Duplicates = append(result.Duplicates, dup)
		}
	}

	if len(result.Inserted) > 0 {
		if err := r.store.SaveClients(ctx, result.Inserted); err != nil {
			return nil, fmt.Errorf("failed to insert new clients: %w", err)
		}
	}
	if len(result.Duplicates) > 0 {
		if err := r.store.SaveDuplicateClients(ctx, result.Duplicates); err != nil {
			return nil, fmt.Errorf("failed to insert duplicate clients: %w", err)
		}
	}
	return result, nil
}

// dedupeByHighestID groups export rows by name. The row with the highest
// Joist client id wins each group; rows without an id lose to any row with
// one. Ties keep the earlier row. The literal numeric comparison is the
// contract, even if the external tool ever reuses ids.
func dedupeByHighestID(export []model.Client) (canonical map[string]model.Client, losers map[string][]model.Client) {
	canonical = make(map[string]model.Client)
	losers = make(map[string][]model.Client)

	for _, c := range export {
		if clean.Blank(c.FullName) {
			continue
		}
		cur, ok := canonical[c.FullName]
		if !ok {
			canonical[c.FullName] = c
			continue
		}
		if higherID(c, cur) {
			losers[c.FullName] = append(losers[c.FullName], cur)
			canonical[c.FullName] = c
		} else {
			losers[c.FullName] = append(losers[c.FullName], c)
		}
	}
	return canonical, losers
}

func higherID(a, b model.Client) bool {
	if a.JoistClientID == nil {
		return false
	}
	if b.JoistClientID == nil {
		return true
	}
	return *a.JoistClientID > *b.JoistClientID
}

// distinctNames returns the distinct non-blank names, sorted.
func distinctNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if clean.Blank(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
