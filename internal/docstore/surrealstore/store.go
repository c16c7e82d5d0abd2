// Package surrealstore keeps documents in SurrealDB, one table per
// collection.
package surrealstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"studio/admin/internal/docstore"
	"studio/admin/internal/util"
)

type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

type Store struct {
	db  *surrealdb.DB
	now func() time.Time
}

type document struct {
	ID        *models.RecordID      `json:"id,omitempty"`
	Fields    map[string]any        `json:"fields"`
	SortOrder *int                  `json:"sort_order,omitempty"`
	CreatedAt models.CustomDateTime `json:"created_at"`
	UpdatedAt models.CustomDateTime `json:"updated_at"`
}

func Connect(ctx context.Context, cfg Config) (*Store, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect surrealdb: %w", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("use namespace/database: %w", err)
	}
	if cfg.Username != "" {
		token, err := db.SignIn(ctx, &surrealdb.Auth{Username: cfg.Username, Password: cfg.Password})
		if err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("sign in surrealdb: %w", err)
		}
		if err := db.Authenticate(ctx, token); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("authenticate surrealdb: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error) {
	query, vars := listQuery(scope)
	results, err := surrealdb.Query[[]document](ctx, s.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}

	items := make([]docstore.Record, 0)
	if results == nil || len(*results) == 0 {
		return items, nil
	}
	for _, doc := range (*results)[0].Result {
		items = append(items, toRecord(scope.Collection, doc))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// listQuery filters by the scope field inside SurrealDB. Scope values are
// strings, so only string fields match.
func listQuery(scope docstore.Scope) (string, map[string]any) {
	vars := map[string]any{"tb": scope.Collection}
	if scope.Field == "" {
		return `SELECT * FROM type::table($tb)`, vars
	}
	vars["field"] = scope.Field
	vars["value"] = scope.Value
	return `SELECT * FROM type::table($tb) WHERE fields[$field] = $value`, vars
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	doc, err := s.selectDocument(ctx, collection, id)
	if err != nil {
		return docstore.Record{}, err
	}
	return toRecord(collection, *doc), nil
}

func (s *Store) Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error) {
	now := s.now().UTC()
	id := util.NewID("")
	doc := document{
		Fields:    docstore.CloneFields(fields),
		CreatedAt: models.CustomDateTime{Time: now},
		UpdatedAt: models.CustomDateTime{Time: now},
	}
	if order != nil {
		doc.SortOrder = docstore.IntPtr(*order)
	}
	if _, err := surrealdb.Create[document](ctx, s.db, models.NewRecordID(collection, id), &doc); err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.merge(ctx, collection, id, map[string]any{"fields": fields})
}

func (s *Store) SetOrder(ctx context.Context, collection, id string, order int) error {
	return s.merge(ctx, collection, id, map[string]any{"sort_order": order})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.selectDocument(ctx, collection, id); err != nil {
		return err
	}
	if _, err := surrealdb.Delete[document](ctx, s.db, models.NewRecordID(collection, id)); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, `RETURN true`, nil); err != nil {
		return fmt.Errorf("ping surrealdb: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// merge applies patch to an existing record. UPDATE on a missing record id
// behaves differently across server versions, so existence is checked first.
func (s *Store) merge(ctx context.Context, collection, id string, patch map[string]any) error {
	if _, err := s.selectDocument(ctx, collection, id); err != nil {
		return err
	}
	patch["updated_at"] = models.CustomDateTime{Time: s.now().UTC()}
	if _, err := surrealdb.Merge[document](ctx, s.db, models.NewRecordID(collection, id), patch); err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) selectDocument(ctx context.Context, collection, id string) (*document, error) {
	doc, err := surrealdb.Select[document](ctx, s.db, models.NewRecordID(collection, id))
	if err != nil {
		if isNotFound(err) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	if doc == nil || doc.ID == nil {
		return nil, docstore.ErrNotFound
	}
	return doc, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value") ||
		errors.Is(err, docstore.ErrNotFound)
}

func toRecord(collection string, doc document) docstore.Record {
	record := docstore.Record{
		Collection: collection,
		Fields:     doc.Fields,
		CreatedAt:  doc.CreatedAt.Time.UTC(),
		UpdatedAt:  doc.UpdatedAt.Time.UTC(),
	}
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	if doc.ID != nil {
		record.ID = fmt.Sprint(doc.ID.ID)
	}
	if doc.SortOrder != nil {
		record.Order = docstore.IntPtr(*doc.SortOrder)
	}
	return record
}
