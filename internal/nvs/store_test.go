package nvs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both implementations must satisfy the same contract.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetInt64("ns", "answer", -42))
			v, err := store.GetInt64("ns", "answer")
			require.NoError(t, err)
			assert.Equal(t, int64(-42), v)

			require.NoError(t, store.SetBool("ns", "flag", true))
			b, err := store.GetBool("ns", "flag")
			require.NoError(t, err)
			assert.True(t, b)

			require.NoError(t, store.SetString("ns", "name", "esp32s3"))
			s, err := store.GetString("ns", "name")
			require.NoError(t, err)
			assert.Equal(t, "esp32s3", s)

			require.NoError(t, store.SetBlob("ns", "blob", []byte{1, 2, 3}))
			raw, err := store.GetBlob("ns", "blob")
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3}, raw)
		})
	}
}

func TestStoreMissingKey(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetString("ns", "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreTypeMismatch(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetString("ns", "value", "text"))
			_, err := store.GetInt64("ns", "value")
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestStoreOverwriteChangesKind(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetString("ns", "k", "text"))
			require.NoError(t, store.SetInt64("ns", "k", 7))

			v, err := store.GetInt64("ns", "k")
			require.NoError(t, err)
			assert.Equal(t, int64(7), v)
		})
	}
}

func TestStoreEraseNamespace(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetString("wipe", "a", "1"))
			require.NoError(t, store.SetString("keep", "b", "2"))

			require.NoError(t, store.EraseNamespace("wipe"))

			_, err := store.GetString("wipe", "a")
			assert.ErrorIs(t, err, ErrNotFound)

			kept, err := store.GetString("keep", "b")
			require.NoError(t, err)
			assert.Equal(t, "2", kept)
		})
	}
}
