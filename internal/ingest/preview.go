package ingest

import (
	"fmt"

	"github.com/crivera/joistsync/internal/mapping"
)

// Preview runs the read, map, clean and convert stages of one file without
// touching storage, so an export can be checked before a real run. Dropped
// rows are reported exactly as a real run would report them.
func (ing *Ingestor) Preview(entity mapping.Entity, variant, path string) (*Result, error) {
	table, err := mapping.Lookup(entity, variant)
	if err != nil {
		return nil, err
	}

	b, err := ing.readBatch(path, table)
	if err != nil {
		return nil, err
	}

	stamp := ing.now()
	var saved int
	var dropped []string
	switch entity {
	case mapping.Clients:
		prepareBatch(b, table, clientStringColumns)
		clients, dr := clientsFromBatch(b, ing.source, stamp)
		unique, dups := splitCollisions(clients)
		res := &Result{
			File:       path,
			RowsRead:   b.Len(),
			RowsSaved:  len(unique),
			Duplicates: len(dups),
			Dropped:    dr,
		}
		reportDropped("clients", path, dr)
		return res, nil
	case mapping.Estimates:
		prepareBatch(b, table, []string{"full_name"})
		rows, dr := estimatesFromBatch(b, ing.source, stamp)
		saved, dropped = len(rows), dr
	case mapping.Invoices:
		prepareBatch(b, table, []string{"full_name"})
		rows, dr := invoicesFromBatch(b, ing.source, stamp)
		saved, dropped = len(rows), dr
	default:
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}

	reportDropped(string(entity), path, dropped)
	return &Result{
		File:      path,
		RowsRead:  b.Len(),
		RowsSaved: saved,
		Dropped:   dropped,
	}, nil
}
