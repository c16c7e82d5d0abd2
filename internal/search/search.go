// Package search finds content items by text. Meilisearch serves queries
// when it is reachable; otherwise the document store is scanned directly.
package search

import (
	"strings"

	"studio/admin/internal/content"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Scope   string `json:"scope,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Kind   string // empty = all kinds
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Record is the data we index for one content item.
type Record struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Scope string `json:"scope,omitempty"`
}

// bodyFields are concatenated, in this order, into the searchable body.
var bodyFields = []string{"summary", "body", "description", "author", "publisher", "publication", "location", "client"}

func recordFromItem(item content.Item) Record {
	var parts []string
	for _, field := range bodyFields {
		if value := strings.TrimSpace(item.String(field)); value != "" {
			parts = append(parts, value)
		}
	}
	return Record{
		ID:    item.ID,
		Kind:  item.Kind,
		Title: item.String("title"),
		Body:  strings.Join(parts, "\n"),
		Scope: item.String("category"),
	}
}

func normalizeQuery(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
