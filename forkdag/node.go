// Package forkdag implements the bounded fork graph shared by the
// Bitcoin and Stacks fork managers: insertion of out-of-order blocks,
// canonical tip election, reorg detection, and pruning behind a
// retention window. The algorithm is generic over the block payload;
// bitcoin.go / stacks.go instantiate it per chain, while microblock.go
// tracks microblock trails in its own structure without Graph.
package forkdag

import "github.com/daglabs/chainhook/model"

// Block is the minimal shape the graph needs from a chain-specific block
// type. BitcoinBlock, StacksBlock and StacksMicroblock all satisfy it.
type Block interface {
	Ident() model.BlockIdentifier
	ParentIdent() model.BlockIdentifier
}

// node is one entry of the arena. Parent/child links are handle-valued
// (model.BlockIdentifier), never raw pointers, per the arena design in
// spec.md §9.
type node[B Block] struct {
	block     B
	parentID  model.BlockIdentifier
	hasParent bool
	children  map[model.BlockIdentifier]struct{}
	canonical bool
	resolved  bool
	seq       uint64
}
