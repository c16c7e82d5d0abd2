package content

import (
	"time"

	"studio/admin/internal/docstore"
)

type Item struct {
	ID        string
	Kind      string
	Order     *int
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

func itemFromRecord(kind string, record docstore.Record) Item {
	return Item{
		ID:        record.ID,
		Kind:      kind,
		Order:     record.Order,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Fields:    record.Fields,
	}
}

// Map flattens the item into a JSON payload.
func (i Item) Map() map[string]any {
	out := make(map[string]any, len(i.Fields)+5)
	for key, value := range i.Fields {
		out[key] = value
	}
	out["id"] = i.ID
	out["kind"] = i.Kind
	if i.Order != nil {
		out["order"] = *i.Order
	} else {
		out["order"] = nil
	}
	out["createdAt"] = i.CreatedAt
	out["updatedAt"] = i.UpdatedAt
	return out
}

func (i Item) String(field string) string {
	value, _ := i.Fields[field].(string)
	return value
}

// Indexer receives content changes after they are stored.
type Indexer interface {
	IndexItem(item Item)
	RemoveItem(kind, id string)
}

type nopIndexer struct{}

func (nopIndexer) IndexItem(Item)            {}
func (nopIndexer) RemoveItem(string, string) {}
