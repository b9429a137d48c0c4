package mining_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/mining"
)

type fakeRPC struct {
	generateCalls int32
	failNext      int32
}

func (f *fakeRPC) GenerateToAddress(ctx context.Context, numBlocks int, address string) error {
	if atomic.LoadInt32(&f.failNext) > 0 {
		atomic.AddInt32(&f.failNext, -1)
		return context.DeadlineExceeded
	}
	atomic.AddInt32(&f.generateCalls, 1)
	return nil
}

func (f *fakeRPC) InvalidateBlock(ctx context.Context, blockHash string) error {
	return nil
}

func TestMiningGatedUntilProtocolDeployed(t *testing.T) {
	rpc := &fakeRPC{}
	loop := mining.New(rpc, mining.Settings{Cadence: 10 * time.Millisecond, MineAddress: "addr"}, logger.New("TEST", logger.LevelOff))
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	loop.Commands() <- mining.Command{Kind: mining.CommandStart}
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&rpc.generateCalls), "must not mine before ProtocolDeployed")

	loop.SetProtocolDeployed()
	time.Sleep(50 * time.Millisecond)
	require.Greater(t, atomic.LoadInt32(&rpc.generateCalls), int32(0))

	cancel()
}

func TestMineCommandIgnoredBeforeDeployed(t *testing.T) {
	rpc := &fakeRPC{}
	loop := mining.New(rpc, mining.Settings{Cadence: time.Hour, MineAddress: "addr"}, logger.New("TEST", logger.LevelOff))
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	defer cancel()

	loop.Commands() <- mining.Command{Kind: mining.CommandMine}
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&rpc.generateCalls))

	loop.SetProtocolDeployed()
	loop.Commands() <- mining.Command{Kind: mining.CommandMine}
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&rpc.generateCalls))
}
