package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "store.json"))
	require.NoError(t, err)
	return store
}

func TestNewFileStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewFileStore("  ")
	require.Error(t, err)
}

func TestGetMissingKeysAbsentFromResult(t *testing.T) {
	store := newStore(t)

	records, err := store.Get(context.Background(), "settings.v2", "settings.v1")
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string][]byte{
		"settings.v2": []byte(`{"language":"fr-FR"}`),
	}))

	records, err := store.Get(ctx, "settings.v2")
	require.NoError(t, err)
	require.JSONEq(t, `{"language":"fr-FR"}`, string(records["settings.v2"]))
}

func TestSetMergesWithExistingKeys(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string][]byte{"a": []byte(`1`)}))
	require.NoError(t, store.Set(ctx, map[string][]byte{"b": []byte(`2`)}))

	records, err := store.Get(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestRemoveDeletesOnlyNamedKeys(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string][]byte{
		"a": []byte(`1`),
		"b": []byte(`2`),
	}))
	require.NoError(t, store.Remove(ctx, "a", "never-existed"))

	records, err := store.Get(ctx, "a", "b")
	require.NoError(t, err)
	require.NotContains(t, records, "a")
	require.JSONEq(t, `2`, string(records["b"]))
}

func TestCorruptFileSurfacesError(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{broken"), 0o600))

	_, err := store.Get(context.Background(), "settings.v2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode store")
}

func TestWriteSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, map[string][]byte{"k": []byte(`"v"`)}))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	records, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `"v"`, string(records["k"]))
}

func TestCancelledContextShortCircuits(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Set(ctx, map[string][]byte{"k": []byte(`1`)}), context.Canceled)
	require.ErrorIs(t, store.Remove(ctx, "k"), context.Canceled)
}

func TestDefaultPathUsesXDGStateHome(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateHome, "voxkey", "store.json"), path)
}
