package ordering

import (
	"sort"

	"studio/admin/internal/docstore"
)

type Duplicate struct {
	Order int
	IDs   []string
}

// Report describes how far a scope is from contiguous orders.
type Report struct {
	Total      int
	Ordered    int
	Legacy     []string
	Gaps       []int
	Duplicates []Duplicate
	Negative   []string
}

// Contiguous reports whether the ordered records hold exactly 0..Ordered-1.
func (r Report) Contiguous() bool {
	return len(r.Gaps) == 0 && len(r.Duplicates) == 0 && len(r.Negative) == 0
}

// Inspect checks the orders of one scope without touching the store.
func Inspect(records []docstore.Record) Report {
	report := Report{Total: len(records)}
	byOrder := map[int][]string{}
	maxOrder := -1
	for _, record := range records {
		if record.Order == nil {
			report.Legacy = append(report.Legacy, record.ID)
			continue
		}
		report.Ordered++
		order := *record.Order
		if order < 0 {
			report.Negative = append(report.Negative, record.ID)
			continue
		}
		byOrder[order] = append(byOrder[order], record.ID)
		if order > maxOrder {
			maxOrder = order
		}
	}

	for order := 0; order <= maxOrder; order++ {
		ids, ok := byOrder[order]
		if !ok {
			report.Gaps = append(report.Gaps, order)
			continue
		}
		if len(ids) > 1 {
			sort.Strings(ids)
			report.Duplicates = append(report.Duplicates, Duplicate{Order: order, IDs: ids})
		}
	}
	sort.Strings(report.Legacy)
	sort.Strings(report.Negative)
	return report
}
