package ordering

import (
	"sort"

	"studio/admin/internal/docstore"
)

// Less is the display comparator. Ordered records come first by ascending
// order; records without an order follow, newest first. Remaining ties fall
// back to createdAt descending and then id so the result is total.
func Less(a, b docstore.Record) bool {
	switch {
	case a.Order != nil && b.Order != nil:
		if *a.Order != *b.Order {
			return *a.Order < *b.Order
		}
	case a.Order != nil:
		return true
	case b.Order != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ResolveSortOrder returns a sorted copy of records. The input is not
// modified.
func ResolveSortOrder(records []docstore.Record) []docstore.Record {
	out := make([]docstore.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// ordered returns the records that carry an order, in resolved sequence.
func ordered(records []docstore.Record) []docstore.Record {
	sorted := ResolveSortOrder(records)
	n := 0
	for n < len(sorted) && sorted[n].Order != nil {
		n++
	}
	return sorted[:n]
}
