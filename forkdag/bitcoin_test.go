package forkdag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/forkdag"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

func testLog() *logger.Logger {
	return logger.New("TEST", logger.LevelOff)
}

func btcBlock(index uint64, hash, parentHash string) model.BitcoinBlock {
	parentIndex := uint64(0)
	if index > 0 {
		parentIndex = index - 1
	}
	return model.BitcoinBlock{
		BlockIdentifier:       model.BlockIdentifier{Index: index, Hash: hash},
		ParentBlockIdentifier: model.BlockIdentifier{Index: parentIndex, Hash: parentHash},
	}
}

func TestSimpleExtension(t *testing.T) {
	m := forkdag.NewBitcoinForkManager(forkdag.Settings{}, testLog())

	ev1, err := m.Process(btcBlock(1, "a1", "genesis"))
	require.NoError(t, err)
	require.NotNil(t, ev1)
	require.Equal(t, model.EventChainUpdatedWithBlocks, ev1.Kind)
	require.Len(t, ev1.NewBlocks, 1)

	ev2, err := m.Process(btcBlock(2, "b1", "a1"))
	require.NoError(t, err)
	require.NotNil(t, ev2)
	require.Equal(t, model.EventChainUpdatedWithBlocks, ev2.Kind)

	tip, ok := m.CanonicalTip()
	require.True(t, ok)
	require.Equal(t, model.BlockIdentifier{Index: 2, Hash: "b1"}, tip)
}

func TestTwoBlockReorg(t *testing.T) {
	m := forkdag.NewBitcoinForkManager(forkdag.Settings{}, testLog())

	_, err := m.Process(btcBlock(1, "a1", "genesis"))
	require.NoError(t, err)
	_, err = m.Process(btcBlock(2, "b1", "a1"))
	require.NoError(t, err)

	_, err = m.Process(btcBlock(2, "b2", "a1"))
	require.NoError(t, err)

	ev, err := m.Process(btcBlock(3, "c2", "b2"))
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, model.EventChainUpdatedWithReorg, ev.Kind)
	require.Equal(t, []model.BitcoinBlock{btcBlock(2, "b1", "a1")}, ev.BlocksToRollback)
	require.Equal(t, []model.BitcoinBlock{btcBlock(2, "b2", "a1"), btcBlock(3, "c2", "b2")}, ev.BlocksToApply)

	tip, ok := m.CanonicalTip()
	require.True(t, ok)
	require.Equal(t, model.BlockIdentifier{Index: 3, Hash: "c2"}, tip)
}

func TestOutOfOrderArrival(t *testing.T) {
	m := forkdag.NewBitcoinForkManager(forkdag.Settings{}, testLog())

	_, err := m.Process(btcBlock(1, "a", "genesis"))
	require.NoError(t, err)

	ev, err := m.Process(btcBlock(3, "c", "b"))
	require.NoError(t, err)
	require.Nil(t, ev)

	ev, err = m.Process(btcBlock(2, "b", "a"))
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, model.EventChainUpdatedWithBlocks, ev.Kind)
	require.Equal(t, []model.BitcoinBlock{btcBlock(2, "b", "a"), btcBlock(3, "c", "b")}, ev.NewBlocks)
}

func TestIdempotentReplay(t *testing.T) {
	m := forkdag.NewBitcoinForkManager(forkdag.Settings{}, testLog())

	_, err := m.Process(btcBlock(1, "a", "genesis"))
	require.NoError(t, err)

	ev, err := m.Process(btcBlock(1, "a", "genesis"))
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestRetentionWindowKeepsCanonicalChain(t *testing.T) {
	m := forkdag.NewBitcoinForkManager(forkdag.Settings{RetentionWindow: 2}, testLog())

	_, err := m.Process(btcBlock(1, "a", "genesis"))
	require.NoError(t, err)
	_, err = m.Process(btcBlock(2, "b", "a"))
	require.NoError(t, err)
	_, err = m.Process(btcBlock(3, "c", "b"))
	require.NoError(t, err)
	_, err = m.Process(btcBlock(4, "d", "c"))
	require.NoError(t, err)

	require.True(t, m.IsCanonical(model.BlockIdentifier{Index: 4, Hash: "d"}))
	require.True(t, m.IsCanonical(model.BlockIdentifier{Index: 2, Hash: "b"}))
}
