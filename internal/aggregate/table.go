// Package aggregate assembles extracted invoice records into a table,
// removes duplicate invoices and derives summary statistics.
package aggregate

import (
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// BuildTable assembles records into a table in input order. The input slice is copied.
func BuildTable(records []entity.InvoiceRecord) entity.InvoiceTable {
	t := make(entity.InvoiceTable, len(records))
	copy(t, records)
	return t
}

// Deduplicate keeps the first record for each distinct Nota and drops the rest.
// The empty Nota of placeholder records is a group like any other, so only the
// first failed document of a batch survives. Survivors keep their relative
// order. The input table is not modified; the second result is the number of
// removed records.
func Deduplicate(t entity.InvoiceTable) (entity.InvoiceTable, int) {
	seen := make(map[string]struct{}, len(t))
	out := make(entity.InvoiceTable, 0, len(t))
	for _, r := range t {
		if _, dup := seen[r.Nota]; dup {
			continue
		}
		seen[r.Nota] = struct{}{}
		out = append(out, r)
	}
	return out, len(t) - len(out)
}
