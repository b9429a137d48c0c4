// Package mining implements the devnet-only Mining/Node Control Loop
// (spec.md §4.8): a single-owner loop driven by a command channel that
// talks to a Bitcoin node RPC to produce blocks at a configured cadence,
// gated on the Coordinator's protocol_deployed signal.
//
// Grounded on the teacher's rpcclient command/future shape (one RPC call
// per command, errors surfaced to the caller) and blockdag's
// single-owner processing loop (domain/blockdag), adapted here to a
// command channel instead of a message-bus dispatch table.
package mining

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/daglabs/chainhook/internal/logger"
)

// CommandKind tags a control message sent to the mining loop.
type CommandKind string

const (
	CommandStart             CommandKind = "Start"
	CommandPause             CommandKind = "Pause"
	CommandMine              CommandKind = "Mine"
	CommandInvalidateChainTip CommandKind = "InvalidateChainTip"
)

type Command struct {
	Kind CommandKind
	// BlockHash is the tip to invalidate, meaningful only for
	// CommandInvalidateChainTip.
	BlockHash string
}

// RPC is the minimal Bitcoin node surface the mining loop drives. A real
// implementation talks JSON-RPC over HTTP to bitcoind; tests supply a
// fake.
type RPC interface {
	GenerateToAddress(ctx context.Context, numBlocks int, address string) error
	InvalidateBlock(ctx context.Context, blockHash string) error
}

// Settings is the loop's explicit config object (spec.md §9).
type Settings struct {
	Cadence     time.Duration
	MineAddress string
}

// Loop is the single-owner devnet mining control loop.
type Loop struct {
	rpc      RPC
	settings Settings
	log      *logger.Logger

	commands chan Command

	running          bool
	protocolDeployed bool
}

// New constructs a Loop. The command channel is bounded (spec.md §9:
// "All channels are bounded").
func New(rpc RPC, settings Settings, log *logger.Logger) *Loop {
	return &Loop{rpc: rpc, settings: settings, log: log, commands: make(chan Command, 32)}
}

// Commands returns the send side of the command channel.
func (l *Loop) Commands() chan<- Command { return l.commands }

// SetProtocolDeployed is called by the wiring in cmd/chainhookd when it
// acknowledges the Coordinator's ShouldDeployProtocol signal; the
// Coordinator itself never calls it. Mining does not start until this has
// been called at least once (spec.md §4.8: "gated... does not start
// until the Coordinator signals ProtocolDeployed").
func (l *Loop) SetProtocolDeployed() { l.protocolDeployed = true }

// Run drives the loop until ctx is cancelled, per spec.md §4.8: "the
// loop exits only on explicit terminate" (here, context cancellation is
// that signal; the process-wide termination described in spec.md §5
// funnels into ctx).
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cadence())
	defer ticker.Stop()

	for {
		select {
		case cmd := <-l.commands:
			l.handleCommand(ctx, cmd)
		case <-ticker.C:
			if l.running && l.protocolDeployed {
				l.mineOnce(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) cadence() time.Duration {
	if l.settings.Cadence <= 0 {
		return time.Second
	}
	return l.settings.Cadence
}

func (l *Loop) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CommandStart:
		l.running = true
	case CommandPause:
		l.running = false
	case CommandMine:
		if l.protocolDeployed {
			l.mineOnce(ctx)
		} else {
			l.log.Debugf("ignoring Mine command before ProtocolDeployed")
		}
	case CommandInvalidateChainTip:
		l.invalidateWithRetry(ctx, cmd.BlockHash)
	}
}

func (l *Loop) mineOnce(ctx context.Context) {
	err := backoff.Retry(func() error {
		return l.rpc.GenerateToAddress(ctx, 1, l.settings.MineAddress)
	}, infiniteOneSecondBackOff(ctx))
	if err != nil {
		l.log.Errorf("generatetoaddress failed permanently: %s", err)
	}
}

func (l *Loop) invalidateWithRetry(ctx context.Context, blockHash string) {
	err := backoff.Retry(func() error {
		return l.rpc.InvalidateBlock(ctx, blockHash)
	}, infiniteOneSecondBackOff(ctx))
	if err != nil {
		l.log.Errorf("invalidateblock failed permanently: %s", err)
	}
}

// infiniteOneSecondBackOff implements spec.md §4.8's "retried
// indefinitely with a 1-second backoff", bounded only by ctx
// cancellation (backoff.WithContext stops retrying once ctx is done).
func infiniteOneSecondBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.NewConstantBackOff(time.Second), ctx)
}
