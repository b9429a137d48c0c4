package forkdag

import (
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// StacksForkManager tracks the Stacks anchor-block fork graph.
type StacksForkManager struct {
	graph *Graph[model.StacksBlock]
}

func NewStacksForkManager(settings Settings, log *logger.Logger) *StacksForkManager {
	return &StacksForkManager{graph: New[model.StacksBlock](settings, log)}
}

func (m *StacksForkManager) CanonicalTip() (model.BlockIdentifier, bool) {
	return m.graph.CanonicalTip()
}

func (m *StacksForkManager) IsCanonical(id model.BlockIdentifier) bool {
	return m.graph.IsCanonical(id)
}

// Graph exposes the underlying generic graph for checkpointing.
func (m *StacksForkManager) Graph() *Graph[model.StacksBlock] {
	return m.graph
}

func (m *StacksForkManager) Process(block model.StacksBlock) (*model.StacksChainEvent, error) {
	update, err := m.graph.Process(block)
	if err != nil || update == nil {
		return nil, err
	}
	if update.IsReorg {
		return &model.StacksChainEvent{
			Kind:             model.EventChainUpdatedWithReorg,
			BlocksToRollback: update.BlocksToRollback,
			BlocksToApply:    update.BlocksToApply,
		}, nil
	}
	return &model.StacksChainEvent{
		Kind:      model.EventChainUpdatedWithBlocks,
		NewBlocks: update.NewBlocks,
	}, nil
}
