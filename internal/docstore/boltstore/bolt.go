// Package boltstore implements docstore.Store on an embedded bbolt file, one
// bucket per collection, with msgpack-encoded values.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"studio/admin/internal/docstore"
	"studio/admin/internal/util"
)

type storedRecord struct {
	Fields    map[string]any `msgpack:"f"`
	Order     *int           `msgpack:"o,omitempty"`
	CreatedAt time.Time      `msgpack:"c"`
	UpdatedAt time.Time      `msgpack:"u"`
}

type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bolt dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) List(_ context.Context, scope docstore.Scope) ([]docstore.Record, error) {
	items := make([]docstore.Record, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scope.Collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			record, err := decode(scope.Collection, k, v)
			if err != nil {
				return err
			}
			if scope.Matches(record) {
				items = append(items, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Record, error) {
	var record docstore.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return docstore.ErrNotFound
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return docstore.ErrNotFound
		}
		var err error
		record, err = decode(collection, []byte(id), raw)
		return err
	})
	if err != nil {
		return docstore.Record{}, err
	}
	return record, nil
}

func (s *Store) Create(_ context.Context, collection string, fields map[string]any, order *int) (string, error) {
	id := util.NewID("")
	now := time.Now().UTC()
	stored := storedRecord{
		Fields:    docstore.CloneFields(fields),
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return put(bucket, id, stored)
	})
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	return s.modify(collection, id, func(stored *storedRecord) {
		if stored.Fields == nil {
			stored.Fields = make(map[string]any, len(fields))
		}
		for key, value := range fields {
			stored.Fields[key] = value
		}
	})
}

func (s *Store) SetOrder(_ context.Context, collection, id string, order int) error {
	return s.modify(collection, id, func(stored *storedRecord) {
		stored.Order = docstore.IntPtr(order)
	})
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil || bucket.Get([]byte(id)) == nil {
			return docstore.ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) modify(collection, id string, apply func(*storedRecord)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return docstore.ErrNotFound
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return docstore.ErrNotFound
		}
		var stored storedRecord
		if err := msgpack.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		apply(&stored)
		stored.UpdatedAt = time.Now().UTC()
		return put(bucket, id, stored)
	})
}

func put(bucket *bbolt.Bucket, id string, stored storedRecord) error {
	raw, err := msgpack.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return bucket.Put([]byte(id), raw)
}

func decode(collection string, key, raw []byte) (docstore.Record, error) {
	var stored storedRecord
	if err := msgpack.Unmarshal(raw, &stored); err != nil {
		return docstore.Record{}, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	if stored.Fields == nil {
		stored.Fields = map[string]any{}
	}
	return docstore.Record{
		ID:         string(key),
		Collection: collection,
		Fields:     stored.Fields,
		Order:      stored.Order,
		CreatedAt:  stored.CreatedAt.UTC(),
		UpdatedAt:  stored.UpdatedAt.UTC(),
	}, nil
}
