// Command chainhookd is an example wiring of the chainhook-core
// components into one process: ingestion server, fork managers,
// Coordinator, hook Dispatcher, optional devnet mining loop, metrics and
// checkpointing. It is illustrative, not the system's test surface (that
// lives in each package's own _test.go files).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daglabs/chainhook/bitcoin"
	"github.com/daglabs/chainhook/checkpoint"
	"github.com/daglabs/chainhook/coordinator"
	"github.com/daglabs/chainhook/diagnostics"
	"github.com/daglabs/chainhook/forkdag"
	"github.com/daglabs/chainhook/hooks"
	"github.com/daglabs/chainhook/ingestion"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/metrics"
	"github.com/daglabs/chainhook/mining"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/stacks"
)

func main() {
	listenAddr := flag.String("listen", ":20456", "ingestion HTTP listen address")
	metricsAddr := flag.String("metrics-listen", ":9456", "prometheus metrics listen address")
	network := flag.String("network", "mainnet", "bitcoin network (mainnet/testnet/regtest)")
	devnet := flag.Bool("devnet", false, "enable devnet mining loop and Bitcoin RPC proxy")
	mineAddress := flag.String("mine-address", "", "devnet: address passed to generatetoaddress")
	bitcoindRPC := flag.String("bitcoind-rpc", "http://127.0.0.1:18443", "devnet: bitcoind JSON-RPC endpoint")
	hooksDir := flag.String("hooks-dir", "", "directory of .yaml chainhook specifications to load at startup")
	checkpointDir := flag.String("checkpoint-dir", "", "goleveldb directory for fork-graph checkpoints; empty disables checkpointing")
	logFile := flag.String("log-file", "", "rotated log file path; empty logs to stdout only")
	flag.Parse()

	if *logFile != "" {
		if err := logger.InitLogRotator(*logFile); err != nil {
			os.Stderr.WriteString("failed to init log rotator: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	log := logger.New("MAIN", logger.LevelInfo)
	diag := diagnostics.New()
	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bitcoinMgr := forkdag.NewBitcoinForkManager(forkdag.Settings{Metrics: m, Chain: "bitcoin"}, logger.New("BTCD", logger.LevelInfo))
	stacksMgr := forkdag.NewStacksForkManager(forkdag.Settings{Metrics: m, Chain: "stacks"}, logger.New("STKS", logger.LevelInfo))
	microMgr := forkdag.NewMicroblockForkManager(logger.New("MBLK", logger.LevelInfo))

	var store *checkpoint.Store
	if *checkpointDir != "" {
		var err error
		store, err = checkpoint.Open(*checkpointDir)
		if err != nil {
			log.Errorf("failed to open checkpoint store: %s", err)
			os.Exit(1)
		}
		defer store.Close()
		restoreCheckpoints(log, store, bitcoinMgr, stacksMgr)
	}

	registry := hooks.NewRegistry()
	if *hooksDir != "" {
		if err := loadHookSpecifications(registry, *hooksDir, *network); err != nil {
			log.Errorf("failed to load hook specifications: %s", err)
		}
	}

	dispatcher := hooks.NewDispatcher(registry, hooks.DefaultDispatcherSettings(), m, diag, nil)
	dispatcher.Start(ctx)
	defer dispatcher.Wait()

	coord := coordinator.New(dispatcher, coordinator.Settings{}, logger.New("COOR", logger.LevelInfo), 256)
	go coord.Run(ctx, nil)

	var miningLoop *mining.Loop
	var rpcProxy *bitcoindRPCProxy
	if *devnet {
		rpcProxy = newBitcoindRPCProxy(*bitcoindRPC)
		miningLoop = mining.New(rpcProxy, mining.Settings{Cadence: time.Second, MineAddress: *mineAddress}, logger.New("MINE", logger.LevelInfo))
		rpcProxy.wireMining(miningLoop.Commands())
		go miningLoop.Run(ctx)
		go watchProtocolDeployment(ctx, coord, miningLoop)
	}

	bitcoinDecoder := bitcoin.NewDecoder(*network, logger.New("BTCD", logger.LevelInfo))
	stacksDecoder := stacks.NewDecoder(logger.New("STKS", logger.LevelInfo))

	ingestionServer := ingestion.New(
		ingestion.ServerSettings{Addr: *listenAddr, DevnetRPC: *devnet},
		logger.New("HTTP", logger.LevelInfo),
		diag,
		bitcoinDecoder,
		stacksDecoder,
		&bitcoinSink{ctx: ctx, mgr: bitcoinMgr, coord: coord, diag: diag},
		&stacksSink{ctx: ctx, mgr: stacksMgr, micro: microMgr, coord: coord, diag: diag},
		rpcProxy,
		&tipReporter{bitcoin: bitcoinMgr, stacks: stacksMgr},
	)

	httpServer := &http.Server{Addr: *listenAddr, Handler: ingestionServer.Router()}
	go func() {
		log.Infof("ingestion server listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("ingestion server exited: %s", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: metricsMux}
	go func() {
		log.Infof("metrics server listening on %s", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server exited: %s", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Infof("shutting down")

	if store != nil {
		saveCheckpoints(log, store, bitcoinMgr, stacksMgr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
	cancel()
}

// watchProtocolDeployment bridges the Coordinator's ShouldDeployProtocol
// gate to the mining loop: a real deployment pipeline would submit and
// confirm a contract-deploy transaction before acknowledging; this
// wiring acknowledges immediately since devnet bootstrapping is out of
// this binary's illustrative scope.
func watchProtocolDeployment(ctx context.Context, coord *coordinator.Coordinator, loop *mining.Loop) {
	for {
		select {
		case msg := <-coord.ControlMessages():
			if msg.Kind == coordinator.ShouldDeployProtocol {
				coord.AcknowledgeProtocolDeployed()
				loop.SetProtocolDeployed()
			}
		case <-ctx.Done():
			return
		}
	}
}

type bitcoinSink struct {
	ctx   context.Context
	mgr   *forkdag.BitcoinForkManager
	coord *coordinator.Coordinator
	diag  *diagnostics.Channel
}

func (s *bitcoinSink) SubmitBitcoinBlock(b model.BitcoinBlock) {
	ev, err := s.mgr.Process(b)
	if err != nil {
		s.diag.Publish(diagnostics.Event{Severity: diagnostics.SeverityError, Kind: diagnostics.KindGraphInvariant, Subsystem: "bitcoin", Message: err.Error()})
		return
	}
	if ev != nil {
		s.coord.SubmitBitcoinEvent(s.ctx, *ev)
	}
}

type stacksSink struct {
	ctx   context.Context
	mgr   *forkdag.StacksForkManager
	micro *forkdag.MicroblockForkManager
	coord *coordinator.Coordinator
	diag  *diagnostics.Channel
}

func (s *stacksSink) SubmitStacksBlock(b model.StacksBlock) {
	ev, err := s.mgr.Process(b)
	if err != nil {
		s.diag.Publish(diagnostics.Event{Severity: diagnostics.SeverityError, Kind: diagnostics.KindGraphInvariant, Subsystem: "stacks", Message: err.Error()})
		return
	}
	if ev != nil {
		s.coord.SubmitStacksEvent(s.ctx, *ev)
	}
}

func (s *stacksSink) SubmitStacksMicroblocks(blocks []model.StacksMicroblock, parentIsAnchor []bool) {
	anchor, ok := s.mgr.CanonicalTip()
	if !ok {
		s.diag.Publish(diagnostics.Event{Severity: diagnostics.SeverityWarning, Kind: diagnostics.KindMalformedInput, Subsystem: "microblock", Message: "microblocks received before any Stacks anchor block"})
		return
	}
	for i, mb := range blocks {
		ev, err := s.micro.Process(anchor, mb, parentIsAnchor[i])
		if err != nil {
			s.diag.Publish(diagnostics.Event{Severity: diagnostics.SeverityError, Kind: diagnostics.KindGraphInvariant, Subsystem: "microblock", Message: err.Error()})
			continue
		}
		if ev != nil {
			s.coord.SubmitStacksEvent(s.ctx, *ev)
		}
	}
}

type tipReporter struct {
	bitcoin *forkdag.BitcoinForkManager
	stacks  *forkdag.StacksForkManager
}

func (t *tipReporter) BitcoinCanonicalTip() (model.BlockIdentifier, bool) { return t.bitcoin.CanonicalTip() }
func (t *tipReporter) StacksCanonicalTip() (model.BlockIdentifier, bool)  { return t.stacks.CanonicalTip() }

func restoreCheckpoints(log *logger.Logger, store *checkpoint.Store, bitcoinMgr *forkdag.BitcoinForkManager, stacksMgr *forkdag.StacksForkManager) {
	if snapshot, ok, err := checkpoint.Load[model.BitcoinBlock](store, "bitcoin"); err != nil {
		log.Errorf("failed to load bitcoin checkpoint: %s", err)
	} else if ok {
		if err := checkpoint.Restore(bitcoinMgr.Graph(), snapshot); err != nil {
			log.Errorf("failed to restore bitcoin checkpoint: %s", err)
		} else {
			log.Infof("restored bitcoin graph from checkpoint (%d nodes)", len(snapshot.Nodes))
		}
	}
	if snapshot, ok, err := checkpoint.Load[model.StacksBlock](store, "stacks"); err != nil {
		log.Errorf("failed to load stacks checkpoint: %s", err)
	} else if ok {
		if err := checkpoint.Restore(stacksMgr.Graph(), snapshot); err != nil {
			log.Errorf("failed to restore stacks checkpoint: %s", err)
		} else {
			log.Infof("restored stacks graph from checkpoint (%d nodes)", len(snapshot.Nodes))
		}
	}
}

func saveCheckpoints(log *logger.Logger, store *checkpoint.Store, bitcoinMgr *forkdag.BitcoinForkManager, stacksMgr *forkdag.StacksForkManager) {
	if err := checkpoint.Save(store, "bitcoin", checkpoint.Capture(bitcoinMgr.Graph())); err != nil {
		log.Errorf("failed to save bitcoin checkpoint: %s", err)
	}
	if err := checkpoint.Save(store, "stacks", checkpoint.Capture(stacksMgr.Graph())); err != nil {
		log.Errorf("failed to save stacks checkpoint: %s", err)
	}
}

func loadHookSpecifications(registry *hooks.Registry, dir string, network string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		uuid := entry.Name()
		hook, err := hooks.ParseSpecification(data, uuid, network)
		if err != nil {
			return err
		}
		registry.Register(hook)
	}
	return nil
}
