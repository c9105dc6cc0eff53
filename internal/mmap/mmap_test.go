package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("reads file contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.bin")
		want := []byte("flagvault snapshot body")
		require.NoError(t, os.WriteFile(path, want, 0o644))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, want, m.Bytes())
		assert.Equal(t, len(want), m.Size())
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.bin")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Empty(t, m.Bytes())
		assert.Zero(t, m.Size())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
		assert.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Size())

	// Idempotent.
	assert.NoError(t, m.Close())
}
