package hooks_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/hooks"
)

func TestStoreSaveLoadDelete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hooks.db")
	store, err := hooks.OpenStore(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	h := newBitcoinHook("h1")
	h.Network = "mainnet"
	require.NoError(t, store.Save(h, "name: x\nversion: 1\nchain: bitcoin\n"))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "h1", loaded[0].UUID)
	require.Equal(t, hooks.ChainBitcoin, loaded[0].Chain)

	require.NoError(t, store.Delete("h1"))
	loaded, err = store.LoadAll()
	require.NoError(t, err)
	require.Empty(t, loaded)
}
