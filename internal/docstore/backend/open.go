// Package backend opens the document store named by configuration.
package backend

import (
	"context"
	"fmt"
	"strings"

	"studio/admin/internal/config"
	"studio/admin/internal/docstore"
	"studio/admin/internal/docstore/boltstore"
	"studio/admin/internal/docstore/pgstore"
	"studio/admin/internal/docstore/surrealstore"
)

const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverSurreal  = "surreal"
)

func Open(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.DocstoreDriver)); driver {
	case "", DriverMemory:
		return docstore.NewMemoryStore(), nil
	case DriverBolt:
		store, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres, "pg":
		store, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSurreal, "surrealdb":
		store, err := surrealstore.Connect(ctx, surrealstore.Config{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.SurrealDatabase,
			Username:  cfg.SurrealUser,
			Password:  cfg.SurrealPass,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", driver)
	}
}
