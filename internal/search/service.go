package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"studio/admin/internal/content"
	"studio/admin/internal/docstore"
)

// Service is the facade that tries Meilisearch first and falls back to a
// store scan.
type Service struct {
	meili  *Meili
	scan   *Scan
	store  docstore.Store
	kinds  []content.Kind
	logger *zap.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, store docstore.Store, kinds []content.Kind, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		meili:  meili,
		scan:   NewScan(store, kinds),
		store:  store,
		kinds:  kinds,
		logger: logger,
	}
}

func (s *Service) Search(q Query) Response {
	q = normalizeQuery(q)
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "meilisearch"}
		}
		s.logger.Warn("meilisearch error, falling back to scan", zap.Error(err))
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		s.logger.Error("search scan failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text, Backend: "scan"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "scan"}
}

// IndexItem pushes one item to Meilisearch in the background.
func (s *Service) IndexItem(item content.Item) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := recordFromItem(item)
	go func() {
		if err := s.meili.Index(record); err != nil {
			s.logger.Warn("index item failed", zap.String("kind", record.Kind), zap.String("id", record.ID), zap.Error(err))
		}
	}()
}

// RemoveItem drops one item from Meilisearch in the background.
func (s *Service) RemoveItem(kind, id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Delete(kind, id); err != nil {
			s.logger.Warn("remove item failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		}
	}()
}

// ReindexAll reads every searchable item from the store and pushes it to
// Meilisearch. It returns the number of records sent.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.meili == nil || !s.meili.Healthy() {
		return 0, nil
	}
	var records []Record
	for _, kind := range s.kinds {
		items, err := s.store.List(ctx, docstore.Scope{Collection: kind.Collection})
		if err != nil {
			return 0, fmt.Errorf("reindex %s: %w", kind.Name, err)
		}
		for _, record := range items {
			records = append(records, recordFromItem(content.Item{ID: record.ID, Kind: kind.Name, Fields: record.Fields}))
		}
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.meili.Index(records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
