package hooks

import (
	"context"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/daglabs/chainhook/diagnostics"
	"github.com/daglabs/chainhook/metrics"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/predicate"
)

// DispatcherSettings is the Dispatcher's explicit config object (spec.md
// §9 "Config objects"): no implicit environment lookup.
type DispatcherSettings struct {
	WorkerCount int
	QueueSize   int
	HTTPTimeout time.Duration
}

// DefaultDispatcherSettings matches spec.md §4.7/§5 defaults: 8 workers,
// a combined queue capacity of 1024 occurrences.
func DefaultDispatcherSettings() DispatcherSettings {
	return DispatcherSettings{WorkerCount: 8, QueueSize: 1024, HTTPTimeout: 10 * time.Second}
}

type job struct {
	hook       *ResolvedHook
	occurrence Occurrence
}

// Dispatcher owns the bounded delivery worker pool (spec.md §5: "The
// Dispatcher never blocks the Fork Manager"). Per-hook FIFO is preserved
// by hash-partitioning occurrences across workers by hook uuid; global
// FIFO across hooks is not promised.
type Dispatcher struct {
	registry    *Registry
	settings    DispatcherSettings
	httpClient  *http.Client
	metrics     *metrics.Registry
	diagnostics *diagnostics.Channel
	noopSink    func(Occurrence)

	queues []chan job
	group  *errgroup.Group
}

// NewDispatcher constructs a Dispatcher. noopSink receives every
// occurrence dispatched to a Noop-action hook (spec.md §4.7: "used by
// tests and embedding"); it may be nil.
func NewDispatcher(registry *Registry, settings DispatcherSettings, m *metrics.Registry, diag *diagnostics.Channel, noopSink func(Occurrence)) *Dispatcher {
	if settings.WorkerCount <= 0 {
		settings.WorkerCount = 8
	}
	if settings.QueueSize <= 0 {
		settings.QueueSize = 1024
	}
	perWorker := settings.QueueSize / settings.WorkerCount
	if perWorker < 1 {
		perWorker = 1
	}

	d := &Dispatcher{
		registry:    registry,
		settings:    settings,
		httpClient:  &http.Client{Timeout: settings.HTTPTimeout},
		metrics:     m,
		diagnostics: diag,
		noopSink:    noopSink,
		queues:      make([]chan job, settings.WorkerCount),
	}
	for i := range d.queues {
		d.queues[i] = make(chan job, perWorker)
	}
	return d
}

// Start launches the bounded worker pool under an errgroup.Group, one
// goroutine per queue; Wait returns once every worker has drained its
// queue and exited after ctx is cancelled, per spec.md §5's "drain its
// input channel once, finish in-flight work, and exit".
func (d *Dispatcher) Start(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	d.group = group
	for i, q := range d.queues {
		i, q := i, q
		group.Go(func() error {
			d.runWorker(groupCtx, i, q)
			return nil
		})
	}
}

// Wait blocks until every worker goroutine has exited.
func (d *Dispatcher) Wait() {
	if d.group != nil {
		_ = d.group.Wait()
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, workerIdx int, q chan job) {
	for {
		select {
		case j, ok := <-q:
			if !ok {
				return
			}
			d.deliver(ctx, j)
		case <-ctx.Done():
			d.drain(ctx, q)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context, q chan job) {
	for {
		select {
		case j := <-q:
			d.deliver(ctx, j)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	onRetry := func() {
		if d.metrics != nil {
			d.metrics.DispatchRetriesTotal.WithLabelValues(j.hook.UUID).Inc()
		}
	}
	err := Deliver(ctx, d.httpClient, j.hook.Action, j.occurrence, onRetry, d.noopSink)
	if err != nil {
		if d.metrics != nil && j.hook.Action.Kind == ActionHttpPost {
			d.metrics.DispatchExhaustedTotal.WithLabelValues(j.hook.UUID).Inc()
		}
		d.emitDiagnostic(diagnostics.SeverityError, diagnostics.KindDispatchError, j.hook.UUID, err.Error())
	}
}

func (d *Dispatcher) emitDiagnostic(sev diagnostics.Severity, kind diagnostics.Kind, subsystem, msg string) {
	if d.diagnostics == nil {
		return
	}
	d.diagnostics.Publish(diagnostics.Event{Severity: sev, Kind: kind, Subsystem: subsystem, Message: msg})
}

// enqueue hash-partitions by hook uuid and sheds the oldest queued
// occurrence (incrementing the queue-shed metric) if that worker's
// queue is full, per spec.md §4.7's "overflow is shed oldest-first".
func (d *Dispatcher) enqueue(j job) {
	idx := workerIndex(j.hook.UUID, len(d.queues))
	q := d.queues[idx]
	select {
	case q <- j:
		return
	default:
	}
	select {
	case <-q:
		if d.metrics != nil {
			d.metrics.QueueShedTotal.WithLabelValues(j.hook.UUID).Inc()
		}
	default:
	}
	select {
	case q <- j:
	default:
		if d.metrics != nil {
			d.metrics.QueueShedTotal.WithLabelValues(j.hook.UUID).Inc()
		}
	}
}

func workerIndex(uuid string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uuid))
	return int(h.Sum32()) % n
}

// DispatchBitcoinEvent runs the §4.7 dispatch algorithm for one
// BitcoinChainEvent against every currently active Bitcoin hook.
func (d *Dispatcher) DispatchBitcoinEvent(ev model.BitcoinChainEvent, proofs map[model.TransactionIdentifier]string) {
	blockIndex := currentBitcoinIndex(ev)
	for _, h := range d.registry.Active(ChainBitcoin, blockIndex) {
		var apply, rollback []BlockPayload
		var matchCount uint64

		switch ev.Kind {
		case model.EventChainUpdatedWithBlocks:
			apply, matchCount = d.buildBitcoinApply(ev.NewBlocks, h, proofs)
		case model.EventChainUpdatedWithReorg:
			rollback, _ = d.buildBitcoinApply(ev.BlocksToRollback, h, proofs)
			var applyCount uint64
			apply, applyCount = d.buildBitcoinApply(ev.BlocksToApply, h, proofs)
			matchCount = applyCount
		default:
			continue
		}

		if len(apply) == 0 && len(rollback) == 0 {
			continue
		}
		d.registry.RecordOccurrence(ChainBitcoin, h.UUID, matchCount, blockIndex)
		d.enqueue(job{hook: h, occurrence: Occurrence{
			Apply:    apply,
			Rollback: rollback,
			Chainhook: OccurrenceChainhook{
				UUID:         h.UUID,
				OccurrenceID: uuid.NewString(),
				Predicate:    h.BitcoinPredicate,
			},
		}})
	}
}

func (d *Dispatcher) buildBitcoinApply(blocks []model.BitcoinBlock, h *ResolvedHook, proofs map[model.TransactionIdentifier]string) ([]BlockPayload, uint64) {
	out := make([]BlockPayload, 0, len(blocks))
	var matchCount uint64
	for _, block := range blocks {
		hits := make([]model.BitcoinTransaction, 0)
		for _, tx := range block.Transactions {
			if evaluateBitcoin(h, tx) {
				hits = append(hits, tx)
			}
		}
		if len(hits) == 0 {
			continue
		}
		matchCount += uint64(len(hits))
		out = append(out, BuildBitcoinBlockPayload(block, hits, h, proofs))
	}
	return out, matchCount
}

// DispatchStacksEvent runs the dispatch algorithm for one StacksChainEvent.
func (d *Dispatcher) DispatchStacksEvent(ev model.StacksChainEvent, proofs map[model.TransactionIdentifier]string) {
	blockIndex := currentStacksIndex(ev)
	for _, h := range d.registry.Active(ChainStacks, blockIndex) {
		var apply, rollback []BlockPayload
		var matchCount uint64

		switch ev.Kind {
		case model.EventChainUpdatedWithBlocks, model.EventChainUpdatedWithMicroblocks:
			apply, matchCount = d.buildStacksApply(allStacksBlocks(ev), h, proofs)
		case model.EventChainUpdatedWithReorg, model.EventChainUpdatedWithMicroblocksReorg:
			rollback, _ = d.buildStacksApply(allStacksRollbackBlocks(ev), h, proofs)
			var applyCount uint64
			apply, applyCount = d.buildStacksApply(allStacksApplyBlocks(ev), h, proofs)
			matchCount = applyCount
		default:
			continue
		}

		if len(apply) == 0 && len(rollback) == 0 {
			continue
		}
		d.registry.RecordOccurrence(ChainStacks, h.UUID, matchCount, blockIndex)
		d.enqueue(job{hook: h, occurrence: Occurrence{
			Apply:    apply,
			Rollback: rollback,
			Chainhook: OccurrenceChainhook{
				UUID:         h.UUID,
				OccurrenceID: uuid.NewString(),
				Predicate:    h.StacksPredicate,
			},
		}})
	}
}

func (d *Dispatcher) buildStacksApply(blocks []model.StacksBlock, h *ResolvedHook, proofs map[model.TransactionIdentifier]string) ([]BlockPayload, uint64) {
	out := make([]BlockPayload, 0, len(blocks))
	var matchCount uint64
	for _, block := range blocks {
		hits := make([]model.StacksTransaction, 0)
		for _, tx := range block.Transactions {
			if evaluateStacks(h, tx) {
				hits = append(hits, tx)
			}
		}
		if len(hits) == 0 {
			continue
		}
		matchCount += uint64(len(hits))
		out = append(out, BuildStacksBlockPayload(block, hits, h, proofs))
	}
	return out, matchCount
}

func evaluateBitcoin(h *ResolvedHook, tx model.BitcoinTransaction) bool {
	if h.BitcoinPredicate == nil {
		return false
	}
	return predicate.EvaluateBitcoin(*h.BitcoinPredicate, tx)
}

func evaluateStacks(h *ResolvedHook, tx model.StacksTransaction) bool {
	if h.StacksPredicate == nil {
		return false
	}
	return predicate.EvaluateStacks(*h.StacksPredicate, tx)
}

func currentBitcoinIndex(ev model.BitcoinChainEvent) uint64 {
	if len(ev.NewBlocks) > 0 {
		return ev.NewBlocks[len(ev.NewBlocks)-1].BlockIdentifier.Index
	}
	if len(ev.BlocksToApply) > 0 {
		return ev.BlocksToApply[len(ev.BlocksToApply)-1].BlockIdentifier.Index
	}
	return 0
}

func currentStacksIndex(ev model.StacksChainEvent) uint64 {
	if len(ev.NewBlocks) > 0 {
		return ev.NewBlocks[len(ev.NewBlocks)-1].BlockIdentifier.Index
	}
	if len(ev.BlocksToApply) > 0 {
		return ev.BlocksToApply[len(ev.BlocksToApply)-1].BlockIdentifier.Index
	}
	if len(ev.NewMicroblocks) > 0 {
		return ev.NewMicroblocks[len(ev.NewMicroblocks)-1].BlockIdentifier.Index
	}
	return 0
}

func allStacksBlocks(ev model.StacksChainEvent) []model.StacksBlock {
	if len(ev.NewBlocks) > 0 {
		return ev.NewBlocks
	}
	return microblocksAsBlocks(ev.NewMicroblocks)
}

func allStacksApplyBlocks(ev model.StacksChainEvent) []model.StacksBlock {
	if len(ev.BlocksToApply) > 0 {
		return ev.BlocksToApply
	}
	return microblocksAsBlocks(ev.MicroblocksToApply)
}

func allStacksRollbackBlocks(ev model.StacksChainEvent) []model.StacksBlock {
	if len(ev.BlocksToRollback) > 0 {
		return ev.BlocksToRollback
	}
	return microblocksAsBlocks(ev.MicroblocksToRollback)
}

// microblocksAsBlocks adapts the microblock shape to BlockPayload's
// block-shaped builder since both carry an identifier, parent, and
// transactions — only the anchor-vs-microblock distinction is lost,
// which the Coordinator layer (not the Dispatcher) is responsible for
// tracking.
func microblocksAsBlocks(mbs []model.StacksMicroblock) []model.StacksBlock {
	out := make([]model.StacksBlock, 0, len(mbs))
	for _, mb := range mbs {
		out = append(out, model.StacksBlock{
			BlockIdentifier:       mb.BlockIdentifier,
			ParentBlockIdentifier: mb.ParentBlockIdentifier,
			Transactions:          mb.Transactions,
		})
	}
	return out
}
