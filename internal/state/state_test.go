package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateActive(t *testing.T) {
	st := State{"Fedefut": true, "Todoticket": false}
	assert.True(t, st.Active("Fedefut"))
	assert.False(t, st.Active("Todoticket"))
	assert.False(t, st.Active("Fanaticks"), "absent entries read as false")

	var empty State
	assert.False(t, empty.Active("anything"))
}

func TestStateClone(t *testing.T) {
	st := State{"a": true}
	cp := st.Clone()
	cp["a"] = false
	cp["b"] = true
	assert.Equal(t, State{"a": true}, st)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewJSONStore(filepath.Join(t.TempDir(), "monitor_state.json"))

	want := State{"Fedefut": true, "Fanaticks": false, "Boletería Ñandú": true}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJSONStoreFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "monitor_state.json")
	store := NewJSONStore(path)

	require.NoError(t, store.Save(ctx, State{"Boletería": true, "<b>": false}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "\n  \"Boletería\": true", "indented, non-ASCII kept verbatim")
	assert.Contains(t, string(data), "\"<b>\": false", "no HTML escaping")
}

func TestJSONStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewJSONStore(filepath.Join(t.TempDir(), "s.json"))

	require.NoError(t, store.Save(ctx, State{"a": true, "b": true}))
	require.NoError(t, store.Save(ctx, State{"a": false}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{"a": false}, got)
}

func TestJSONStoreLoadFailuresYieldEmptyState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing_file", func(t *testing.T) {
		got, err := NewJSONStore(filepath.Join(dir, "missing.json")).Load(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("corrupt_file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		got, err := NewJSONStore(path).Load(ctx)
		assert.Error(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("wrong_shape", func(t *testing.T) {
		path := filepath.Join(dir, "list.json")
		require.NoError(t, os.WriteFile(path, []byte(`["Fedefut"]`), 0644))
		got, err := NewJSONStore(path).Load(ctx)
		assert.Error(t, err)
		assert.Empty(t, got)
	})

	t.Run("null", func(t *testing.T) {
		path := filepath.Join(dir, "null.json")
		require.NoError(t, os.WriteFile(path, []byte(`null`), 0644))
		got, err := NewJSONStore(path).Load(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("unreadable_path_is_a_directory", func(t *testing.T) {
		got, err := NewJSONStore(dir).Load(ctx)
		assert.Error(t, err)
		assert.NotNil(t, got)
	})
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := State{"Fedefut": true, "Fanaticks": false}
	require.NoError(t, store.Save(ctx, want))
	require.NoError(t, store.Save(ctx, State{"Fedefut": false, "Todoticket": true}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{"Fedefut": false, "Todoticket": true}, got)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), " ")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	js, err := Open(ctx, "json", filepath.Join(dir, "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, js)

	sq, err := Open(ctx, "sqlite", filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sq)
	require.NoError(t, sq.Close())

	_, err = Open(ctx, "etcd", "x")
	assert.Error(t, err)
}
