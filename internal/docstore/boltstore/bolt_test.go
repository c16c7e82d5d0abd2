package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"studio/admin/internal/docstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "studio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.Create(ctx, "press", map[string]any{
		"title":       "Neue Räume",
		"publication": "Bauwelt",
		"tags":        []string{"print", "2024"},
	}, docstore.IntPtr(0))
	require.NoError(t, err)

	got, err := s.Get(ctx, "press", id)
	require.NoError(t, err)
	require.Equal(t, "Neue Räume", got.String("title"))
	require.Equal(t, []string{"print", "2024"}, got.Strings("tags"))
	require.Equal(t, 0, *got.Order)

	require.NoError(t, s.Update(ctx, "press", id, map[string]any{"url": "https://example.com"}))
	require.NoError(t, s.SetOrder(ctx, "press", id, 3))

	got, err = s.Get(ctx, "press", id)
	require.NoError(t, err)
	require.Equal(t, "Bauwelt", got.String("publication"))
	require.Equal(t, "https://example.com", got.String("url"))
	require.Equal(t, 3, *got.Order)
	require.False(t, got.UpdatedAt.Before(got.CreatedAt))

	require.NoError(t, s.Delete(ctx, "press", id))
	_, err = s.Get(ctx, "press", id)
	require.ErrorIs(t, err, docstore.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "press", id), docstore.ErrNotFound)
}

func TestBoltStoreListAndMissingBucket(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	empty, err := s.List(ctx, docstore.Scope{Collection: "projects"})
	require.NoError(t, err)
	require.Empty(t, empty)
	_, err = s.Get(ctx, "projects", "nope")
	require.ErrorIs(t, err, docstore.ErrNotFound)
	require.ErrorIs(t, s.SetOrder(ctx, "projects", "nope", 1), docstore.ErrNotFound)

	for _, category := range []string{"Architecture", "Interior", "Architecture"} {
		_, err := s.Create(ctx, "projects", map[string]any{"category": category}, nil)
		require.NoError(t, err)
	}
	arch, err := s.List(ctx, docstore.Scope{Collection: "projects", Field: "category", Value: "Architecture"})
	require.NoError(t, err)
	require.Len(t, arch, 2)
	for _, record := range arch {
		require.Nil(t, record.Order)
	}
	require.NoError(t, s.Ping(ctx))
}
