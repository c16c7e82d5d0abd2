package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio/admin/internal/docstore"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore wraps the memory store and fails selected writes.
type flakyStore struct {
	*docstore.MemoryStore

	mu          sync.Mutex
	failOrderOf map[string]bool
	failCreate  bool
	failList    bool
	failDelete  bool
	writes      int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: docstore.NewMemoryStore(), failOrderOf: map[string]bool{}}
}

func (s *flakyStore) List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error) {
	if s.failList {
		return nil, errUnavailable
	}
	return s.MemoryStore.List(ctx, scope)
}

func (s *flakyStore) Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error) {
	s.count()
	if s.failCreate {
		return "", errUnavailable
	}
	return s.MemoryStore.Create(ctx, collection, fields, order)
}

func (s *flakyStore) SetOrder(ctx context.Context, collection, id string, order int) error {
	s.count()
	s.mu.Lock()
	fail := s.failOrderOf[id]
	s.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return s.MemoryStore.SetOrder(ctx, collection, id, order)
}

func (s *flakyStore) Delete(ctx context.Context, collection, id string) error {
	s.count()
	if s.failDelete {
		return errUnavailable
	}
	return s.MemoryStore.Delete(ctx, collection, id)
}

func (s *flakyStore) count() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *flakyStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// seed stores one ordered record per title, in order, and returns titles → id.
func seed(t *testing.T, s *flakyStore, scope docstore.Scope, titles ...string) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(titles))
	for i, title := range titles {
		fields := map[string]any{"title": title}
		if scope.Field != "" {
			fields[scope.Field] = scope.Value
		}
		id := "r-" + title
		s.Put(docstore.Record{
			ID:         id,
			Collection: scope.Collection,
			Fields:     fields,
			Order:      docstore.IntPtr(i),
			CreatedAt:  baseTime.Add(time.Duration(i) * time.Minute),
		})
		ids[title] = id
	}
	return ids
}

// ordersByTitle reads the scope back as title → order (-1 for none).
func ordersByTitle(t *testing.T, s Store, scope docstore.Scope) map[string]int {
	t.Helper()
	records, err := s.List(context.Background(), scope)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	out := make(map[string]int, len(records))
	for _, record := range records {
		order := -1
		if record.Order != nil {
			order = *record.Order
		}
		out[record.String("title")] = order
	}
	return out
}
