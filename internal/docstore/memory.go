package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"studio/admin/internal/util"
)

// MemoryStore keeps every record in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context, scope Scope) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Record, 0)
	for _, record := range s.records[scope.Collection] {
		if scope.Matches(record) {
			items = append(items, copyRecord(record))
		}
	}
	// Map iteration is random; callers get a stable listing.
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[collection][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(record), nil
}

func (s *MemoryStore) Create(_ context.Context, collection string, fields map[string]any, order *int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	record := Record{
		ID:         util.NewID(""),
		Collection: collection,
		Fields:     CloneFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if order != nil {
		record.Order = IntPtr(*order)
	}
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]Record)
	}
	s.records[collection][record.ID] = record
	return record.ID, nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged := CloneFields(record.Fields)
	for key, value := range fields {
		merged[key] = value
	}
	record.Fields = merged
	record.UpdatedAt = s.now().UTC()
	s.records[collection][id] = record
	return nil
}

func (s *MemoryStore) SetOrder(_ context.Context, collection, id string, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[collection][id]
	if !ok {
		return ErrNotFound
	}
	record.Order = IntPtr(order)
	record.UpdatedAt = s.now().UTC()
	s.records[collection][id] = record
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.records[collection], id)
	return nil
}

// Put stores a record verbatim, keeping its id, order and timestamps. It is
// used to seed fixtures such as legacy records that predate ordering.
func (s *MemoryStore) Put(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = util.NewID("")
	}
	if s.records[record.Collection] == nil {
		s.records[record.Collection] = make(map[string]Record)
	}
	s.records[record.Collection][record.ID] = copyRecord(record)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func copyRecord(record Record) Record {
	out := record
	out.Fields = CloneFields(record.Fields)
	if record.Order != nil {
		out.Order = IntPtr(*record.Order)
	}
	return out
}
