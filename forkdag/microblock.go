package forkdag

import (
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// trail is the ordered chain of microblocks built atop one Stacks anchor
// block. Microblocks number sequentially from 0 within a trail, a
// different index space than the anchor's own block height, so a trail is
// tracked independently of forkdag.Graph rather than reusing it directly.
type trail struct {
	blocks []model.StacksMicroblock // oldest-first
	byID   map[model.BlockIdentifier]int
}

// MicroblockForkManager tracks one trail per Stacks anchor block and emits
// ChainUpdatedWithMicroblocks / ChainUpdatedWithMicroblocksReorg events.
type MicroblockForkManager struct {
	log    *logger.Logger
	trails map[model.BlockIdentifier]*trail
}

func NewMicroblockForkManager(log *logger.Logger) *MicroblockForkManager {
	return &MicroblockForkManager{
		log:    log,
		trails: make(map[model.BlockIdentifier]*trail),
	}
}

// Process appends or re-forks a microblock within the trail anchored at
// anchor. parentIsAnchor indicates the microblock's
// parent_block_identifier names the anchor block itself (the first
// microblock of the trail) rather than another microblock.
func (m *MicroblockForkManager) Process(anchor model.BlockIdentifier, mb model.StacksMicroblock, parentIsAnchor bool) (*model.StacksChainEvent, error) {
	t, ok := m.trails[anchor]
	if !ok {
		t = &trail{byID: make(map[model.BlockIdentifier]int)}
		m.trails[anchor] = t
	}

	if _, exists := t.byID[mb.Ident()]; exists {
		return nil, nil
	}

	if parentIsAnchor || len(t.blocks) == 0 {
		if len(t.blocks) == 0 {
			t.blocks = append(t.blocks, mb)
			t.byID[mb.Ident()] = 0
			return &model.StacksChainEvent{
				Kind:           model.EventChainUpdatedWithMicroblocks,
				NewMicroblocks: []model.StacksMicroblock{mb},
			}, nil
		}
		// A second microblock claiming to be first-in-trail forks the
		// existing trail at its root.
		return m.reforkAt(t, 0, mb)
	}

	parentIdx, ok := t.byID[mb.ParentIdent()]
	if !ok {
		// Parent not in this trail: treat as unresolved, matching the
		// block-level fork manager's handling of missing parents.
		m.log.Debugf("microblock %s parent %s not found in trail %s", mb.Ident(), mb.ParentIdent(), anchor)
		return nil, nil
	}

	if parentIdx == len(t.blocks)-1 {
		t.blocks = append(t.blocks, mb)
		t.byID[mb.Ident()] = len(t.blocks) - 1
		return &model.StacksChainEvent{
			Kind:           model.EventChainUpdatedWithMicroblocks,
			NewMicroblocks: []model.StacksMicroblock{mb},
		}, nil
	}

	return m.reforkAt(t, parentIdx+1, mb)
}

// reforkAt replaces everything in the trail from index cut onward with a
// new branch starting at mb, emitting a microblocks reorg event.
func (m *MicroblockForkManager) reforkAt(t *trail, cut int, mb model.StacksMicroblock) (*model.StacksChainEvent, error) {
	rollback := make([]model.StacksMicroblock, len(t.blocks)-cut)
	copy(rollback, t.blocks[cut:])
	// newest-first
	for i, j := 0, len(rollback)-1; i < j; i, j = i+1, j-1 {
		rollback[i], rollback[j] = rollback[j], rollback[i]
	}

	t.blocks = t.blocks[:cut]
	for id := range t.byID {
		if t.byID[id] >= cut {
			delete(t.byID, id)
		}
	}
	t.blocks = append(t.blocks, mb)
	t.byID[mb.Ident()] = len(t.blocks) - 1

	return &model.StacksChainEvent{
		Kind:                  model.EventChainUpdatedWithMicroblocksReorg,
		MicroblocksToRollback: rollback,
		MicroblocksToApply:    []model.StacksMicroblock{mb},
	}, nil
}

// RebaseAnchor moves a trail from oldAnchor to newAnchor when the anchor
// block itself is extended without being reorged away (e.g. the anchor's
// identifier was provisional). No event is produced; this is bookkeeping.
func (m *MicroblockForkManager) RebaseAnchor(oldAnchor, newAnchor model.BlockIdentifier) {
	t, ok := m.trails[oldAnchor]
	if !ok {
		return
	}
	delete(m.trails, oldAnchor)
	m.trails[newAnchor] = t
}

// DiscardAnchor drops the trail for an anchor that has been reorged away.
// Per spec.md §4.4 the trail is simply discarded; no synthetic microblock
// rollback is emitted, since the anchor block's own rollback already tells
// consumers the microblocks built on it are gone (see DESIGN.md).
func (m *MicroblockForkManager) DiscardAnchor(anchor model.BlockIdentifier) {
	delete(m.trails, anchor)
}

// Trail returns the current ordered microblocks for an anchor, if any.
func (m *MicroblockForkManager) Trail(anchor model.BlockIdentifier) []model.StacksMicroblock {
	t, ok := m.trails[anchor]
	if !ok {
		return nil
	}
	out := make([]model.StacksMicroblock, len(t.blocks))
	copy(out, t.blocks)
	return out
}
