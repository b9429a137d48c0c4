package forkdag

import (
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// BitcoinForkManager tracks the Bitcoin fork graph and translates raw
// Update results into model.BitcoinChainEvent values.
type BitcoinForkManager struct {
	graph *Graph[model.BitcoinBlock]
}

func NewBitcoinForkManager(settings Settings, log *logger.Logger) *BitcoinForkManager {
	return &BitcoinForkManager{graph: New[model.BitcoinBlock](settings, log)}
}

func (m *BitcoinForkManager) CanonicalTip() (model.BlockIdentifier, bool) {
	return m.graph.CanonicalTip()
}

func (m *BitcoinForkManager) IsCanonical(id model.BlockIdentifier) bool {
	return m.graph.IsCanonical(id)
}

// Graph exposes the underlying generic graph for checkpointing (see the
// checkpoint package); it is not otherwise meant to be mutated directly.
func (m *BitcoinForkManager) Graph() *Graph[model.BitcoinBlock] {
	return m.graph
}

// Process inserts a decoded Bitcoin block and returns the resulting event,
// or nil if the block is idempotent, unresolved, or not yet on the
// canonical path.
func (m *BitcoinForkManager) Process(block model.BitcoinBlock) (*model.BitcoinChainEvent, error) {
	update, err := m.graph.Process(block)
	if err != nil || update == nil {
		return nil, err
	}
	if update.IsReorg {
		return &model.BitcoinChainEvent{
			Kind:             model.EventChainUpdatedWithReorg,
			BlocksToRollback: update.BlocksToRollback,
			BlocksToApply:    update.BlocksToApply,
		}, nil
	}
	return &model.BitcoinChainEvent{
		Kind:      model.EventChainUpdatedWithBlocks,
		NewBlocks: update.NewBlocks,
	}, nil
}
