package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "@treinos_list")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "@treinos_list", `[{"id":1}]`))
	value, found, err := store.Get(ctx, "@treinos_list")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[{"id":1}]`, value)

	require.NoError(t, store.Set(ctx, "@treinos_list", `[]`))
	value, _, err = store.Get(ctx, "@treinos_list")
	require.NoError(t, err)
	require.Equal(t, `[]`, value)

	require.NoError(t, store.Delete(ctx, "@treinos_list"))
	_, found, err = store.Get(ctx, "@treinos_list")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Delete(ctx, "@never_written"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "wellness.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wellness.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "@sleep_records_list", `[{"id":7}]`))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	value, found, err := second.Get(ctx, "@sleep_records_list")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[{"id":7}]`, value)
}

func TestPrefixedStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	alice := WithPrefix(base, UserPrefix("alice"))
	bob := WithPrefix(base, UserPrefix("bob"))

	require.NoError(t, alice.Set(ctx, "@refeicoes_list", "alice-meals"))

	_, found, err := bob.Get(ctx, "@refeicoes_list")
	require.NoError(t, err)
	require.False(t, found)

	value, found, err := alice.Get(ctx, "@refeicoes_list")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice-meals", value)
	require.ElementsMatch(t, []string{"users/alice/@refeicoes_list"}, base.Keys())

	require.NoError(t, alice.Delete(ctx, "@refeicoes_list"))
	require.Empty(t, base.Keys())
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, Config{Driver: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "w.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, Close(store))

	_, err = Open(ctx, Config{Driver: "etcd"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
