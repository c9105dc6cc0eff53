package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conformance exercises the BlobStore contract against any implementation.
func conformance(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then open", func(t *testing.T) {
		body := "snapshot body"
		require.NoError(t, store.Put(ctx, "snapshots/000001", strings.NewReader(body), int64(len(body))))

		r, size, err := store.Open(ctx, "snapshots/000001")
		require.NoError(t, err)
		defer r.Close()
		assert.Equal(t, int64(len(body)), size)

		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, body, string(got))
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snapshots/000001", strings.NewReader("v2"), 2))
		r, _, err := store.Open(ctx, "snapshots/000001")
		require.NoError(t, err)
		defer r.Close()
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("open missing", func(t *testing.T) {
		_, _, err := store.Open(ctx, "snapshots/missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snapshots/000002", strings.NewReader("x"), 1))
		require.NoError(t, store.Put(ctx, "journal/000001", strings.NewReader("y"), 1))

		names, err := store.List(ctx, "snapshots/")
		require.NoError(t, err)
		assert.Equal(t, []string{"snapshots/000001", "snapshots/000002"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "snapshots/000002"))
		_, _, err := store.Open(ctx, "snapshots/000002")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting again is fine.
		assert.NoError(t, store.Delete(ctx, "snapshots/000002"))
	})
}

func TestMemoryStore(t *testing.T) {
	conformance(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	conformance(t, store)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "a", strings.NewReader("one"), 3))

	r, _, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer r.Close()

	// Overwrite while the old reader is open.
	require.NoError(t, store.Put(ctx, "a", strings.NewReader("two"), 3))

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
}
