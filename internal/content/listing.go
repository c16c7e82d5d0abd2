// Package content implements the admin listings (projects, books, press,
// news), keyed text blocks and contact inquiries on top of the document
// store. Orderable listings route every create, delete and reorder through
// the ordering manager.
package content

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
)

type Listing struct {
	kind    Kind
	store   docstore.Store
	orders  *ordering.Manager
	scopes  []string
	indexer Indexer
	logger  *zap.Logger
}

type ListingOption func(*Listing)

// WithScopes restricts the scope field to the given values.
func WithScopes(values ...string) ListingOption {
	return func(l *Listing) { l.scopes = values }
}

func WithIndexer(indexer Indexer) ListingOption {
	return func(l *Listing) {
		if indexer != nil {
			l.indexer = indexer
		}
	}
}

func WithLogger(logger *zap.Logger) ListingOption {
	return func(l *Listing) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewListing(kind Kind, store docstore.Store, orders *ordering.Manager, opts ...ListingOption) *Listing {
	l := &Listing{
		kind:    kind,
		store:   store,
		orders:  orders,
		indexer: nopIndexer{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listing) Kind() Kind {
	return l.kind
}

// Scopes returns the allowed scope values, or nil for an unscoped listing.
func (l *Listing) Scopes() []string {
	return append([]string(nil), l.scopes...)
}

// List returns the listing in display order. For a scoped listing an empty
// scopeValue lists every scope, grouped in configured scope order.
func (l *Listing) List(ctx context.Context, scopeValue string) ([]Item, error) {
	if l.kind.ScopeField != "" && scopeValue == "" {
		return l.listAllScopes(ctx)
	}
	scope, err := l.scope(scopeValue)
	if err != nil {
		return nil, err
	}
	records, err := l.store.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.kind.Name, err)
	}
	return l.sorted(records), nil
}

func (l *Listing) listAllScopes(ctx context.Context) ([]Item, error) {
	records, err := l.store.List(ctx, docstore.Scope{Collection: l.kind.Collection})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.kind.Name, err)
	}
	groups := map[string][]docstore.Record{}
	for _, record := range records {
		value := record.String(l.kind.ScopeField)
		groups[value] = append(groups[value], record)
	}

	order := append([]string(nil), l.scopes...)
	var extra []string
	for value := range groups {
		if !slices.Contains(order, value) {
			extra = append(extra, value)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	items := make([]Item, 0, len(records))
	for _, value := range order {
		items = append(items, l.sorted(groups[value])...)
	}
	return items, nil
}

func (l *Listing) Get(ctx context.Context, id string) (Item, error) {
	record, err := l.store.Get(ctx, l.kind.Collection, id)
	if err != nil {
		return Item{}, fmt.Errorf("get %s %s: %w", l.kind.Name, id, err)
	}
	return itemFromRecord(l.kind.Name, record), nil
}

// Create stores a new item. Orderable items are placed first in their scope.
// When the item was stored but some siblings could not be shifted, the item
// is returned together with the *ordering.BatchError.
func (l *Listing) Create(ctx context.Context, input map[string]any) (Item, error) {
	fields, err := normalize(l.kind.Name, l.kind.Fields, input, false)
	if err != nil {
		return Item{}, err
	}

	var id string
	if l.kind.Orderable {
		scope, err := l.scope(stringField(fields, l.kind.ScopeField))
		if err != nil {
			return Item{}, err
		}
		id, err = l.orders.Insert(ctx, scope, fields)
		if id == "" {
			return Item{}, err
		}
		item, getErr := l.Get(ctx, id)
		if getErr != nil {
			return Item{}, getErr
		}
		l.indexer.IndexItem(item)
		return item, err
	}

	id, err = l.store.Create(ctx, l.kind.Collection, fields, nil)
	if err != nil {
		return Item{}, fmt.Errorf("create %s: %w", l.kind.Name, err)
	}
	item, err := l.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	l.indexer.IndexItem(item)
	return item, nil
}

// Update merges input into an existing item. The order is never touched and
// the scope field of an orderable item cannot change.
func (l *Listing) Update(ctx context.Context, id string, input map[string]any) (Item, error) {
	fields, err := normalize(l.kind.Name, l.kind.Fields, input, true)
	if err != nil {
		return Item{}, err
	}
	current, err := l.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if l.kind.Orderable && l.kind.ScopeField != "" {
		if next, ok := fields[l.kind.ScopeField]; ok && next != current.Fields[l.kind.ScopeField] {
			return Item{}, invalid(l.kind.Name, l.kind.ScopeField, "cannot change; delete and re-create the item in the other "+l.kind.ScopeField)
		}
	}
	if len(fields) > 0 {
		if err := l.store.Update(ctx, l.kind.Collection, id, fields); err != nil {
			return Item{}, fmt.Errorf("update %s %s: %w", l.kind.Name, id, err)
		}
	}
	item, err := l.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	l.indexer.IndexItem(item)
	return item, nil
}

// Delete removes one item. Siblings keep their orders.
func (l *Listing) Delete(ctx context.Context, id string) error {
	if l.kind.Orderable {
		current, err := l.Get(ctx, id)
		if err != nil {
			return err
		}
		scope := docstore.Scope{Collection: l.kind.Collection}
		if l.kind.ScopeField != "" {
			scope.Field = l.kind.ScopeField
			scope.Value = current.String(l.kind.ScopeField)
		}
		if err := l.orders.Remove(ctx, scope, id); err != nil {
			return err
		}
	} else if err := l.store.Delete(ctx, l.kind.Collection, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", l.kind.Name, id, err)
	}
	l.indexer.RemoveItem(l.kind.Name, id)
	return nil
}

// Reorder applies a full drag-and-drop sequence to one scope.
func (l *Listing) Reorder(ctx context.Context, scopeValue string, ids []string) error {
	if !l.kind.Orderable {
		return invalid(l.kind.Name, "ids", "listing has no manual order")
	}
	scope, err := l.scope(scopeValue)
	if err != nil {
		return err
	}
	return l.orders.Reorder(ctx, scope, ids)
}

func (l *Listing) scope(value string) (docstore.Scope, error) {
	scope := docstore.Scope{Collection: l.kind.Collection}
	if l.kind.ScopeField == "" {
		return scope, nil
	}
	if value == "" {
		return docstore.Scope{}, invalid(l.kind.Name, l.kind.ScopeField, "is required")
	}
	if len(l.scopes) > 0 && !slices.Contains(l.scopes, value) {
		return docstore.Scope{}, invalid(l.kind.Name, l.kind.ScopeField, fmt.Sprintf("unknown value %q", value))
	}
	scope.Field = l.kind.ScopeField
	scope.Value = value
	return scope, nil
}

func (l *Listing) sorted(records []docstore.Record) []Item {
	var sorted []docstore.Record
	if l.kind.SortField != "" {
		sorted = append([]docstore.Record(nil), records...)
		field := l.kind.SortField
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i].String(field), sorted[j].String(field)
			if a != b {
				return a > b
			}
			return ordering.Less(sorted[i], sorted[j])
		})
	} else {
		sorted = ordering.ResolveSortOrder(records)
	}
	items := make([]Item, 0, len(sorted))
	for _, record := range sorted {
		items = append(items, itemFromRecord(l.kind.Name, record))
	}
	return items
}

func stringField(fields map[string]any, name string) string {
	if name == "" {
		return ""
	}
	value, _ := fields[name].(string)
	return value
}
