// Package coordinator implements the Cross-chain Coordinator (spec.md
// §4.5): fan-in from both Fork Managers, the protocol_deployed gate, PoX
// stacking-order and devnet epoch-transition control messages, and
// dispatch fan-out with the ordering guarantees spec.md §4.5/§5 require.
//
// Grounded on the Stacks devnet chains-coordinator
// (original_source/components/stacks-network/src/chains_coordinator.rs,
// see SPEC_FULL.md "Supplemented Features") for the PoX/epoch control
// messages, and on the teacher's single-owner channel-driven subsystems
// (blockdag processing loop) for the fan-in goroutine shape.
package coordinator

import (
	"context"

	"github.com/daglabs/chainhook/hooks"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// ControlMessageKind tags a coordinator-emitted signal whose consumer is
// external to the core (spec.md §4.5, §4.8).
type ControlMessageKind string

const (
	ShouldSubmitStackingOrders         ControlMessageKind = "ShouldSubmitStackingOrders"
	ShouldDeployProtocol               ControlMessageKind = "ShouldDeployProtocol"
	ShouldMaybeTriggerEpochTransition  ControlMessageKind = "ShouldMaybeTriggerEpochTransition"
)

type ControlMessage struct {
	Kind            ControlMessageKind
	StacksBlock     *model.StacksBlock
	BurnBlockHeight uint64
}

// Epoch tags a devnet epoch boundary (SPEC_FULL.md "Supplemented
// Features" #5, grounded on src/devnet/mod.rs).
type Epoch string

const (
	Epoch20 Epoch = "2.0"
	Epoch21 Epoch = "2.1"
	Epoch22 Epoch = "2.2"
	Epoch23 Epoch = "2.3"
	Epoch24 Epoch = "2.4"
)

// EpochBoundary pairs a burn height with the epoch that activates there.
type EpochBoundary struct {
	BurnHeight uint64
	Epoch      Epoch
}

// Settings is the Coordinator's explicit config object (spec.md §9
// "Config objects"). EpochBoundaries must be sorted ascending by
// BurnHeight.
type Settings struct {
	EpochBoundaries []EpochBoundary
}

// Coordinator fans BitcoinChainEvent/StacksChainEvent in from the two
// Fork Managers (per spec.md §4.5, no ordering is promised between the
// two streams — each is per-chain total order only) and fans out to the
// Dispatcher, tracking the protocol_deployed gate and devnet epoch
// transitions along the way.
type Coordinator struct {
	log      *logger.Logger
	settings Settings

	dispatcher *hooks.Dispatcher

	protocolDeployed bool
	deployRequested  bool
	currentEpoch     Epoch

	bitcoinEvents chan model.BitcoinChainEvent
	stacksEvents  chan model.StacksChainEvent
	controlOut    chan ControlMessage
	protocolAck   chan struct{}
}

// New constructs a Coordinator. queueSize bounds the fan-in channels
// (spec.md §9: "All channels are bounded; producers apply backpressure
// rather than growing unboundedly").
func New(dispatcher *hooks.Dispatcher, settings Settings, log *logger.Logger, queueSize int) *Coordinator {
	if queueSize <= 0 {
		queueSize = 256
	}
	epoch := Epoch20
	if len(settings.EpochBoundaries) > 0 {
		epoch = settings.EpochBoundaries[0].Epoch
	}
	return &Coordinator{
		log:           log,
		settings:      settings,
		dispatcher:    dispatcher,
		currentEpoch:  epoch,
		bitcoinEvents: make(chan model.BitcoinChainEvent, queueSize),
		stacksEvents:  make(chan model.StacksChainEvent, queueSize),
		controlOut:    make(chan ControlMessage, queueSize),
		protocolAck:   make(chan struct{}, 1),
	}
}

// SubmitBitcoinEvent is called by the Bitcoin Fork Manager thread; it
// blocks if the fan-in channel is full (backpressure), never drops.
func (c *Coordinator) SubmitBitcoinEvent(ctx context.Context, ev model.BitcoinChainEvent) {
	select {
	case c.bitcoinEvents <- ev:
	case <-ctx.Done():
	}
}

// SubmitStacksEvent is called by the Stacks Fork Manager thread.
func (c *Coordinator) SubmitStacksEvent(ctx context.Context, ev model.StacksChainEvent) {
	select {
	case c.stacksEvents <- ev:
	case <-ctx.Done():
	}
}

// AcknowledgeProtocolDeployed is called by the external consumer once the
// protocol contract deployment Coordinator requested has landed.
func (c *Coordinator) AcknowledgeProtocolDeployed() {
	select {
	case c.protocolAck <- struct{}{}:
	default:
	}
}

// ControlMessages returns the read side of the control-message channel
// for external consumers (spec.md §4.5: "Consumer is external").
func (c *Coordinator) ControlMessages() <-chan ControlMessage { return c.controlOut }

// Run is the Coordinator's single-owner loop (spec.md §5: "One
// Coordinator thread (fan-in from both Fork Managers, fan-out to
// Dispatcher)"). It drains both event channels until ctx is cancelled,
// preserving per-chain event order (ordering guarantees are a property
// of each source channel being processed by a single consumer loop, not
// of this select statement's fairness across chains).
func (c *Coordinator) Run(ctx context.Context, proofs map[model.TransactionIdentifier]string) {
	for {
		select {
		case ev := <-c.bitcoinEvents:
			c.handleBitcoinEvent(ev, proofs)
		case ev := <-c.stacksEvents:
			c.handleStacksEvent(ev, proofs)
		case <-c.protocolAck:
			c.protocolDeployed = true
		case <-ctx.Done():
			c.drain(proofs)
			return
		}
	}
}

func (c *Coordinator) drain(proofs map[model.TransactionIdentifier]string) {
	for {
		select {
		case ev := <-c.bitcoinEvents:
			c.handleBitcoinEvent(ev, proofs)
		case ev := <-c.stacksEvents:
			c.handleStacksEvent(ev, proofs)
		default:
			return
		}
	}
}

func (c *Coordinator) handleBitcoinEvent(ev model.BitcoinChainEvent, proofs map[model.TransactionIdentifier]string) {
	// Rollback events are delivered before the corresponding apply
	// events for the same reorg (spec.md §4.5) — DispatchBitcoinEvent
	// builds a single occurrence per hook carrying both, so ordering
	// within one occurrence's JSON is enforced there; across
	// occurrences, event arrival order is preserved by this loop being
	// the sole reader of c.bitcoinEvents.
	c.dispatcher.DispatchBitcoinEvent(ev, proofs)
}

func (c *Coordinator) handleStacksEvent(ev model.StacksChainEvent, proofs map[model.TransactionIdentifier]string) {
	c.dispatcher.DispatchStacksEvent(ev, proofs)

	if !c.protocolDeployed && !c.deployRequested {
		c.deployRequested = true
		c.emitControl(ControlMessage{Kind: ShouldDeployProtocol})
	}

	for _, block := range ev.NewBlocks {
		c.afterStacksBlock(block)
	}
	for _, block := range ev.BlocksToApply {
		c.afterStacksBlock(block)
	}
}

func (c *Coordinator) afterStacksBlock(block model.StacksBlock) {
	if block.Metadata.PoxCycleLength > 0 &&
		block.Metadata.PoxCyclePosition == block.Metadata.PoxCycleLength-2 {
		b := block
		c.emitControl(ControlMessage{Kind: ShouldSubmitStackingOrders, StacksBlock: &b})
	}

	burnHeight := block.Metadata.BitcoinAnchorBlockIdentifier.Index
	for _, boundary := range c.settings.EpochBoundaries {
		if burnHeight >= boundary.BurnHeight && c.currentEpoch != boundary.Epoch {
			c.currentEpoch = boundary.Epoch
			c.emitControl(ControlMessage{Kind: ShouldMaybeTriggerEpochTransition, BurnBlockHeight: burnHeight})
		}
	}
}

func (c *Coordinator) emitControl(msg ControlMessage) {
	select {
	case c.controlOut <- msg:
	default:
		c.log.Warnf("control message channel full, dropping %s", msg.Kind)
	}
}

// ProtocolDeployed reports the current value of the bootstrap gate.
func (c *Coordinator) ProtocolDeployed() bool { return c.protocolDeployed }

// CurrentEpoch reports the devnet epoch the Coordinator currently
// believes is active.
func (c *Coordinator) CurrentEpoch() Epoch { return c.currentEpoch }
