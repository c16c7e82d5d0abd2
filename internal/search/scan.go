package search

import (
	"context"
	"strings"
	"time"

	"studio/admin/internal/content"
	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
)

const snippetRadius = 60

// Scan implements Searcher by reading every record of the searched kinds and
// matching terms case-insensitively. It needs no index and is always
// available, which is what makes it the fallback.
type Scan struct {
	store   docstore.Store
	kinds   []content.Kind
	timeout time.Duration
}

func NewScan(store docstore.Store, kinds []content.Kind) *Scan {
	return &Scan{store: store, kinds: kinds, timeout: 5 * time.Second}
}

func (s *Scan) Healthy() bool {
	return true
}

// Search matches when every whitespace-separated term occurs in the title or
// body. Title matches rank before body-only matches.
func (s *Scan) Search(q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var titleHits, bodyHits []Result
	for _, kind := range s.kinds {
		if q.Kind != "" && q.Kind != kind.Name {
			continue
		}
		records, err := s.store.List(ctx, docstore.Scope{Collection: kind.Collection})
		if err != nil {
			return nil, 0, err
		}
		for _, record := range ordering.ResolveSortOrder(records) {
			rec := recordFromItem(content.Item{ID: record.ID, Kind: kind.Name, Fields: record.Fields})
			title := strings.ToLower(rec.Title)
			body := strings.ToLower(rec.Body)
			if !matchesAll(title+"\n"+body, terms) {
				continue
			}
			result := Result{
				Kind:    rec.Kind,
				ID:      rec.ID,
				Title:   rec.Title,
				Snippet: snippet(rec.Body, terms[0]),
				Scope:   rec.Scope,
			}
			if matchesAll(title, terms) {
				titleHits = append(titleHits, result)
			} else {
				bodyHits = append(bodyHits, result)
			}
		}
	}

	all := append(titleHits, bodyHits...)
	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if q.Limit <= 0 || end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func matchesAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// snippet cuts the text around the first occurrence of term.
func snippet(text, term string) string {
	lower := strings.ToLower(text)
	at := strings.Index(lower, term)
	if at < 0 {
		if len(text) > 2*snippetRadius {
			return strings.TrimSpace(truncateRunes(text, 2*snippetRadius)) + "…"
		}
		return text
	}
	start := at - snippetRadius
	prefix := "…"
	if start <= 0 {
		start, prefix = 0, ""
	}
	end := at + len(term) + snippetRadius
	suffix := "…"
	if end >= len(text) {
		end, suffix = len(text), ""
	}
	for start > 0 && !isRuneStart(text[start]) {
		start--
	}
	for end < len(text) && !isRuneStart(text[end]) {
		end++
	}
	return prefix + strings.TrimSpace(text[start:end]) + suffix
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
