package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"studio/admin/internal/docstore"
)

func TestTextServicePutIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	texts := NewTextService(store)

	_, err := texts.Get(ctx, "about")
	require.ErrorIs(t, err, docstore.ErrNotFound)

	_, err = texts.Put(ctx, Text{Key: "about", Title: " About ", Body: "We design buildings."})
	require.NoError(t, err)
	_, err = texts.Put(ctx, Text{Key: "about", Title: "About us", Body: "We design places."})
	require.NoError(t, err)
	_, err = texts.Put(ctx, Text{Key: "contact", Body: "Write to us."})
	require.NoError(t, err)

	got, err := texts.Get(ctx, "about")
	require.NoError(t, err)
	require.Equal(t, Text{Key: "about", Title: "About us", Body: "We design places."}, got)

	all, err := texts.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "about", all[0].Key)

	records, err := store.List(ctx, docstore.Scope{Collection: "texts"})
	require.NoError(t, err)
	require.Len(t, records, 2, "second put must update, not insert")
}

func TestTextServiceRejectsBadKey(t *testing.T) {
	texts := NewTextService(docstore.NewMemoryStore())
	for _, key := range []string{"", "About", "a b", "../etc"} {
		_, err := texts.Put(context.Background(), Text{Key: key})
		require.ErrorIs(t, err, ErrInvalid, "key %q", key)
	}
}
