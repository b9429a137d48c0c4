package model

// ChainUpdateEventKind tags the variant of a chain update event emitted by
// a fork manager.
type ChainUpdateEventKind string

const (
	EventChainUpdatedWithBlocks             ChainUpdateEventKind = "ChainUpdatedWithBlocks"
	EventChainUpdatedWithReorg              ChainUpdateEventKind = "ChainUpdatedWithReorg"
	EventChainUpdatedWithMicroblocks        ChainUpdateEventKind = "ChainUpdatedWithMicroblocks"
	EventChainUpdatedWithMicroblocksReorg   ChainUpdateEventKind = "ChainUpdatedWithMicroblocksReorg"
)

// BitcoinChainEvent is emitted by the Bitcoin fork manager.
type BitcoinChainEvent struct {
	Kind             ChainUpdateEventKind
	NewBlocks        []BitcoinBlock
	BlocksToRollback []BitcoinBlock
	BlocksToApply    []BitcoinBlock
}

// StacksChainEvent is emitted by the Stacks fork manager (blocks or
// microblocks).
type StacksChainEvent struct {
	Kind                        ChainUpdateEventKind
	NewBlocks                   []StacksBlock
	BlocksToRollback            []StacksBlock
	BlocksToApply               []StacksBlock
	NewMicroblocks              []StacksMicroblock
	MicroblocksToRollback       []StacksMicroblock
	MicroblocksToApply          []StacksMicroblock
}
