// Package docstore defines the document-store contract used by the admin
// services and an in-memory implementation of it.
//
// Records are schemaless field maps grouped into collections. The store has
// no ordering semantics of its own; the optional Order field is a plain
// integer attribute maintained by the ordering package.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record id does not exist in its collection.
var ErrNotFound = errors.New("docstore: record not found")

// Record is one stored document.
type Record struct {
	ID         string
	Collection string
	Fields     map[string]any
	Order      *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Scope selects the records of a collection, optionally narrowed to those
// whose Field equals Value. An empty Field selects the whole collection.
type Scope struct {
	Collection string
	Field      string
	Value      string
}

func (s Scope) String() string {
	if s.Field == "" {
		return s.Collection
	}
	return fmt.Sprintf("%s[%s=%s]", s.Collection, s.Field, s.Value)
}

// Matches reports whether the record belongs to the scope.
func (s Scope) Matches(record Record) bool {
	if record.Collection != s.Collection {
		return false
	}
	if s.Field == "" {
		return true
	}
	value, ok := record.Fields[s.Field]
	if !ok || value == nil {
		return false
	}
	return fmt.Sprint(value) == s.Value
}

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use; no operation spans more than one document.
type Store interface {
	List(ctx context.Context, scope Scope) ([]Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	SetOrder(ctx context.Context, collection, id string, order int) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	if value, ok := r.Fields[field].(string); ok {
		return value
	}
	return ""
}

// Bool returns the field as a bool.
func (r Record) Bool(field string) bool {
	value, _ := r.Fields[field].(bool)
	return value
}

// Int returns the field as an int, accepting the numeric types the backends
// decode into.
func (r Record) Int(field string) int {
	switch value := r.Fields[field].(type) {
	case int:
		return value
	case int8:
		return int(value)
	case int16:
		return int(value)
	case int32:
		return int(value)
	case int64:
		return int(value)
	case uint:
		return int(value)
	case uint8:
		return int(value)
	case uint16:
		return int(value)
	case uint32:
		return int(value)
	case uint64:
		return int(value)
	case float32:
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}

// Strings returns the field as a string slice.
func (r Record) Strings(field string) []string {
	switch value := r.Fields[field].(type) {
	case []string:
		return append([]string(nil), value...)
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return items
	default:
		return nil
	}
}

// CloneFields returns a shallow copy of fields.
func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return out
}
