// SPDX-License-Identifier: MIT

package lookup

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKVStore(t *testing.T) *KVStore {
	t.Helper()
	store, err := OpenKVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKVStoreCollectionLifecycle(t *testing.T) {
	store := testKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "assets", []string{"host", "owner"}))

	fields, err := store.Fields(ctx, "assets")
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "owner"}, fields)

	_, err = store.Fields(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVStoreRowsRendersTable(t *testing.T) {
	store := testKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "assets", []string{"host", "owner", "net.zone"}))

	_, err := store.PutRow(ctx, "assets", "a1", map[string]any{
		"host":  "web-1",
		"owner": "ops",
		"net":   map[string]any{"zone": "dmz"},
	})
	require.NoError(t, err)
	_, err = store.PutRow(ctx, "assets", "a2", map[string]any{
		"host": "db-1",
		// owner intentionally missing: the cell must render blank
	})
	require.NoError(t, err)

	table, err := store.Rows(ctx, "assets")
	require.NoError(t, err)

	want := [][]string{
		{"_key", "host", "owner", "net.zone"},
		{"a1", "web-1", "ops", "dmz"},
		{"a2", "db-1", "", ""},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestKVStorePutRowGeneratesKey(t *testing.T) {
	store := testKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "c", []string{"v"}))
	key, err := store.PutRow(ctx, "c", "", map[string]any{"v": "1"})
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestKVStorePutRowUnknownCollection(t *testing.T) {
	store := testKVStore(t)
	_, err := store.PutRow(context.Background(), "nope", "k", map[string]any{"v": "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVStoreDeleteRow(t *testing.T) {
	store := testKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "c", []string{"v"}))
	_, err := store.PutRow(ctx, "c", "k", map[string]any{"v": "1"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteRow(ctx, "c", "k"))

	table, err := store.Rows(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, table, 1, "only the header should remain")
}

func TestFlattenDoc(t *testing.T) {
	flat := FlattenDoc(map[string]any{
		"a": "x",
		"n": map[string]any{"b": map[string]any{"c": "deep"}},
		"i": float64(42),
		"f": 1.5,
		"t": true,
		"z": nil,
		"l": []any{"p", "q"},
	})

	assert.Equal(t, "x", flat["a"])
	assert.Equal(t, "deep", flat["n.b.c"])
	assert.Equal(t, "42", flat["i"])
	assert.Equal(t, "1.5", flat["f"])
	assert.Equal(t, "true", flat["t"])
	assert.Equal(t, "", flat["z"])
	assert.Equal(t, `["p","q"]`, flat["l"])
}
