// Package pgstore keeps documents in a single Postgres table with a JSONB
// fields column.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio/admin/internal/docstore"
	"studio/admin/internal/util"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Connect opens the database, applies the embedded migrations and returns a
// ready store.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db, Migrations()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func (s *Store) List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields, sort_order, created_at, updated_at
		FROM documents
		WHERE collection = $1
		  AND ($2::text = '' OR fields->>$2::text = $3::text)
		ORDER BY id ASC
	`, scope.Collection, scope.Field, scope.Value)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	defer rows.Close()

	items := make([]docstore.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows, scope.Collection)
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	return items, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fields, sort_order, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	record, err := scanRecord(row, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Record{}, docstore.ErrNotFound
	}
	return record, err
}

func (s *Store) Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error) {
	payload, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	id := util.NewID("")
	var sortOrder sql.NullInt64
	if order != nil {
		sortOrder = sql.NullInt64{Int64: int64(*order), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields, sort_order)
		VALUES ($1, $2, $3::jsonb, $4)
	`, collection, id, payload, sortOrder)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := encodeFields(fields)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, payload)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return expectOne(result)
}

func (s *Store) SetOrder(ctx context.Context, collection, id string, order int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET sort_order = $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, order)
	if err != nil {
		return fmt.Errorf("set order %s/%s: %w", collection, id, err)
	}
	return expectOne(result)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return expectOne(result)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, collection string) (docstore.Record, error) {
	var (
		record    docstore.Record
		payload   []byte
		sortOrder sql.NullInt64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&record.ID, &payload, &sortOrder, &createdAt, &updatedAt); err != nil {
		return docstore.Record{}, err
	}
	record.Collection = collection
	record.Fields = map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &record.Fields); err != nil {
			return docstore.Record{}, fmt.Errorf("decode %s/%s fields: %w", collection, record.ID, err)
		}
	}
	if sortOrder.Valid {
		record.Order = docstore.IntPtr(int(sortOrder.Int64))
	}
	record.CreatedAt = createdAt.UTC()
	record.UpdatedAt = updatedAt.UTC()
	return record, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return payload, nil
}

func expectOne(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}
