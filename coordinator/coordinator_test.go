package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/coordinator"
	"github.com/daglabs/chainhook/hooks"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

func newTestCoordinator(t *testing.T) (*coordinator.Coordinator, *hooks.Dispatcher) {
	t.Helper()
	registry := hooks.NewRegistry()
	d := hooks.NewDispatcher(registry, hooks.DefaultDispatcherSettings(), nil, nil, nil)
	log := logger.New("TEST", logger.LevelOff)
	c := coordinator.New(d, coordinator.Settings{}, log, 16)
	return c, d
}

func TestShouldDeployProtocolEmittedOnceUntilAcknowledged(t *testing.T) {
	c, d := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	go c.Run(ctx, nil)

	block := model.StacksBlock{BlockIdentifier: model.BlockIdentifier{Index: 1, Hash: "b1"}}
	c.SubmitStacksEvent(ctx, model.StacksChainEvent{Kind: model.EventChainUpdatedWithBlocks, NewBlocks: []model.StacksBlock{block}})
	c.SubmitStacksEvent(ctx, model.StacksChainEvent{Kind: model.EventChainUpdatedWithBlocks, NewBlocks: []model.StacksBlock{block}})

	var messages []coordinator.ControlMessage
	timeout := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case msg := <-c.ControlMessages():
			messages = append(messages, msg)
		case <-timeout:
			break loop
		}
	}

	require.False(t, c.ProtocolDeployed())
	deployCount := 0
	for _, m := range messages {
		if m.Kind == coordinator.ShouldDeployProtocol {
			deployCount++
		}
	}
	require.Equal(t, 1, deployCount)

	c.AcknowledgeProtocolDeployed()
	time.Sleep(20 * time.Millisecond)
	require.True(t, c.ProtocolDeployed())

	cancel()
	d.Wait()
}

func TestShouldSubmitStackingOrdersAtSecondToLastPosition(t *testing.T) {
	c, d := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	go c.Run(ctx, nil)

	block := model.StacksBlock{
		BlockIdentifier: model.BlockIdentifier{Index: 1, Hash: "b1"},
		Metadata: model.StacksBlockMetadata{
			PoxCyclePosition: 98,
			PoxCycleLength:   100,
		},
	}
	c.SubmitStacksEvent(ctx, model.StacksChainEvent{Kind: model.EventChainUpdatedWithBlocks, NewBlocks: []model.StacksBlock{block}})

	found := false
	timeout := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case msg := <-c.ControlMessages():
			if msg.Kind == coordinator.ShouldSubmitStackingOrders {
				found = true
				break loop
			}
		case <-timeout:
			break loop
		}
	}
	require.True(t, found)

	cancel()
	d.Wait()
}
