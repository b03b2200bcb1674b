// Package mapping translates Joist export headers to the canonical schema
// field names, per entity type and export variant. The rename tables are
// explicit: there is no header inference, and a new export variant means a
// new table here.
package mapping

import (
	"fmt"
	"sort"

	"github.com/crivera/joistsync/internal/batch"
)

// Entity selects which canonical schema a batch maps onto.
type Entity string

// Supported entity types.
const (
	Clients   Entity = "clients"
	Estimates Entity = "estimates"
	Invoices  Entity = "invoices"
)

// Variant names a particular upstream export format for an entity.
const (
	// VariantCurrent is the present-day export format.
	VariantCurrent = "current"
	// Variant2024 is the 2024 estimate export, which labels the tax column
	// "Sales tax" instead of "Tax".
	Variant2024 = "2024"
)

// Table is one (entity, variant) rename table plus the uniform canonical
// column set every persisted batch of that entity must carry.
type Table struct {
	Renames   map[string]string
	Entity    Entity
	Variant   string
	Canonical []string
	Comma     rune
}

var clientRenames = map[string]string{
	"Name":                                   "full_name",
	"Email Address":                          "email_address",
	"Phone (mobile)":                         "phone_mobile",
	"Phone (other)":                          "phone_other",
	"Address":                                "address",
	"Address 2":                              "address_2",
	"City":                                   "city",
	"State / Province":                       "state_province",
	"Zip / Postal Code":                      "zip_postal_code",
	"Private Notes":                          "private_notes",
	"**(Do not change this) Joist Client ID": "joist_client_id",
}

var clientCanonical = []string{
	"full_name", "email_address", "phone_mobile", "phone_other",
	"address", "address_2", "city", "state_province",
	"zip_postal_code", "private_notes", "joist_client_id",
}

var estimateCanonical = []string{
	"estimate_number", "full_name", "subtotal", "tax", "total",
	"date_issued", "date_created",
}

var invoiceCanonical = []string{
	"invoice_number", "full_name", "subtotal", "tax", "total",
	"date_issued", "date_created", "payment_received_less_refunds",
}

var tables = map[Entity]map[string]Table{
	Clients: {
		// The client export is tab-separated.
		VariantCurrent: {
			Entity:    Clients,
			Variant:   VariantCurrent,
			Comma:     '\t',
			Renames:   clientRenames,
			Canonical: clientCanonical,
		},
	},
	Estimates: {
		VariantCurrent: {
			Entity:  Estimates,
			Variant: VariantCurrent,
			Comma:   ',',
			Renames: map[string]string{
				"Estimate #":   "estimate_number",
				"Client Name":  "full_name",
				"Subtotal":     "subtotal",
				"Tax":          "tax",
				"Total":        "total",
				"Date Issued":  "date_issued",
				"Date Created": "date_created",
			},
			Canonical: estimateCanonical,
		},
		Variant2024: {
			Entity:  Estimates,
			Variant: Variant2024,
			Comma:   ',',
			Renames: map[string]string{
				"Estimate #":   "estimate_number",
				"Client Name":  "full_name",
				"Subtotal":     "subtotal",
				"Sales tax":    "tax",
				"Total":        "total",
				"Date Issued":  "date_issued",
				"Date Created": "date_created",
			},
			Canonical: estimateCanonical,
		},
	},
	Invoices: {
		VariantCurrent: {
			Entity:  Invoices,
			Variant: VariantCurrent,
			Comma:   ',',
			Renames: map[string]string{
				"Invoice #":                     "invoice_number",
				"Client Name":                   "full_name",
				"Subtotal":                      "subtotal",
				"Tax":                           "tax",
				"Total":                         "total",
				"Date Issued":                   "date_issued",
				"Date Created":                  "date_created",
				"Payment Received Less Refunds": "payment_received_less_refunds",
			},
			Canonical: invoiceCanonical,
		},
	},
}

// Lookup returns the rename table for an (entity, variant) pair.
func Lookup(entity Entity, variant string) (Table, error) {
	byVariant, ok := tables[entity]
	if !ok {
		return Table{}, fmt.Errorf("unknown entity type %q", entity)
	}
	t, ok := byVariant[variant]
	if !ok {
		return Table{}, fmt.Errorf("unknown %s export variant %q (have %v)", entity, variant, variantNames(byVariant))
	}
	return t, nil
}

// Variants lists the known variant names for an entity.
func Variants(entity Entity) []string {
	return variantNames(tables[entity])
}

func variantNames(byVariant map[string]Table) []string {
	names := make([]string, 0, len(byVariant))
	for name := range byVariant {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply renames the batch's source headers to canonical names and appends
// any canonical column the source lacked, as null. Unmapped source columns
// pass through unchanged.
func (t Table) Apply(b *batch.Batch) {
	b.RenameColumns(t.Renames)
	b.EnsureColumns(t.Canonical)
}
