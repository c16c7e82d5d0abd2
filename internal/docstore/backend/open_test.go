package backend

import (
	"context"
	"path/filepath"
	"testing"

	"studio/admin/internal/config"
	"studio/admin/internal/docstore"
	"studio/admin/internal/docstore/boltstore"
)

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), config.Config{DocstoreDriver: "memory"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()
	if _, ok := store.(*docstore.MemoryStore); !ok {
		t.Fatalf("Open() = %T, want *docstore.MemoryStore", store)
	}
}

func TestOpenBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "studio.db")
	store, err := Open(context.Background(), config.Config{DocstoreDriver: "Bolt", BoltPath: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()
	if _, ok := store.(*boltstore.Store); !ok {
		t.Fatalf("Open() = %T, want *boltstore.Store", store)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.Config{DocstoreDriver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
