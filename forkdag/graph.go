package forkdag

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/metrics"
	"github.com/daglabs/chainhook/model"
)

// ErrParentIndexMismatch is returned by Process when a block's parent
// identifier does not have index == block.index-1. Per spec.md §4.4 this
// is a hard error: the block is dropped, not retained as unresolved.
var ErrParentIndexMismatch = errors.New("parent_block_identifier.index does not precede block_identifier.index")

// Settings configures one Graph instance.
type Settings struct {
	// RetentionWindow is the number of blocks behind the canonical tip
	// for which nodes are retained (default 256, per spec.md §3).
	RetentionWindow uint64

	// Metrics, if non-nil, receives ReorgsTotal/NodesPruned increments
	// labeled by Chain. Both are optional: a zero-value Settings still
	// works, just without metrics.
	Metrics *metrics.Registry
	Chain   string
}

// DefaultRetentionWindow is the §3 default.
const DefaultRetentionWindow = 256

// Graph is the per-chain fork graph, pruned behind a retention window
// (see prune for what is dropped). It is not safe for
// concurrent use from more than one goroutine: the owning fork manager
// thread is the sole mutator (spec.md §5).
type Graph[B Block] struct {
	settings Settings
	log      *logger.Logger

	nodes       map[model.BlockIdentifier]*node[B]
	canonical   model.BlockIdentifier
	haveTip     bool
	nextSeq     uint64
}

// New constructs an empty Graph. The first block processed becomes genesis
// and is always accepted regardless of its declared parent.
func New[B Block](settings Settings, log *logger.Logger) *Graph[B] {
	if settings.RetentionWindow == 0 {
		settings.RetentionWindow = DefaultRetentionWindow
	}
	return &Graph[B]{
		settings: settings,
		log:      log,
		nodes:    make(map[model.BlockIdentifier]*node[B]),
	}
}

// CanonicalTip returns the current canonical tip and whether the graph has
// ever accepted a block.
func (g *Graph[B]) CanonicalTip() (model.BlockIdentifier, bool) {
	return g.canonical, g.haveTip
}

// Contains reports whether id has been inserted (canonical or not).
func (g *Graph[B]) Contains(id model.BlockIdentifier) bool {
	_, ok := g.nodes[id]
	return ok
}

// IsCanonical reports whether id is currently on the canonical path.
func (g *Graph[B]) IsCanonical(id model.BlockIdentifier) bool {
	n, ok := g.nodes[id]
	return ok && n.canonical
}

// Update is the generic result of Process: the kind plus, depending on
// kind, either a straight extension or a rollback/apply pair. Callers
// (BitcoinForkManager, StacksForkManager) translate this into the
// chain-specific model.*ChainEvent.
type Update[B Block] struct {
	IsReorg          bool
	NewBlocks        []B // extension path, oldest-first
	BlocksToRollback []B // newest-first
	BlocksToApply    []B // oldest-first
}

// Process inserts block into the graph and returns the resulting chain
// update, or nil if the block was already known (idempotent) or is
// retained as an unresolved orphan.
func (g *Graph[B]) Process(block B) (*Update[B], error) {
	id := block.Ident()
	parentID := block.ParentIdent()

	if _, exists := g.nodes[id]; exists {
		return nil, nil
	}

	if g.haveTip || len(g.nodes) > 0 {
		if parentID.Index+1 != id.Index {
			g.log.Warnf("dropping block %s: parent index mismatch (parent=%d block=%d)",
				id, parentID.Index, id.Index)
			return nil, errors.Wrapf(ErrParentIndexMismatch, "block %s", id)
		}
	}

	n := &node[B]{
		block:    block,
		parentID: parentID,
		children: make(map[model.BlockIdentifier]struct{}),
		seq:      g.nextSeq,
	}
	g.nextSeq++
	g.nodes[id] = n

	if parent, ok := g.nodes[parentID]; ok {
		parent.children[id] = struct{}{}
		n.hasParent = true
		n.resolved = true
	} else if len(g.nodes) == 1 {
		// Genesis: no parent is expected to resolve.
		n.resolved = true
	} else {
		n.resolved = false
	}

	g.cascadeResolve(id)

	oldTip := g.canonical
	hadTip := g.haveTip

	bestID := g.electTip()
	if !hadTip {
		g.canonical = bestID
		g.haveTip = true
		g.markCanonicalPath(bestID)
		g.prune()
		return &Update[B]{NewBlocks: []B{block}}, nil
	}

	if bestID == oldTip {
		// New block did not become part of (or extend) the canonical
		// chain; nothing to emit yet (still unresolved or a losing fork).
		return nil, nil
	}

	if g.isDescendant(bestID, oldTip) {
		path := g.pathBetween(oldTip, bestID) // oldest-first, excludes oldTip
		g.canonical = bestID
		g.markCanonicalPath(bestID)
		g.prune()
		return &Update[B]{NewBlocks: path}, nil
	}

	lca := g.lowestCommonAncestor(oldTip, bestID)
	rollback := g.pathBetween(lca, oldTip) // oldest-first, excludes lca
	reverse(rollback)                      // newest-first
	apply := g.pathBetween(lca, bestID)    // oldest-first, excludes lca

	g.canonical = bestID
	g.markCanonicalPath(bestID)
	g.prune()

	if g.settings.Metrics != nil {
		g.settings.Metrics.ReorgsTotal.WithLabelValues(g.settings.Chain).Inc()
	}

	return &Update[B]{
		IsReorg:          true,
		BlocksToRollback: rollback,
		BlocksToApply:    apply,
	}, nil
}

// cascadeResolve walks forward from a newly-resolved node, resolving any
// previously-orphaned children (and their own waiting children) now that
// their parent chain has been completed. Out-of-order arrival (spec.md
// §4.4 scenario 3) relies on this: an orphan only becomes eligible for
// tip election once this cascade reaches it.
func (g *Graph[B]) cascadeResolve(id model.BlockIdentifier) {
	n, ok := g.nodes[id]
	if !ok || !n.resolved {
		return
	}
	queue := []model.BlockIdentifier{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for otherID, other := range g.nodes {
			if other.resolved || other.hasParent {
				continue
			}
			if other.parentID == cur {
				other.hasParent = true
				other.resolved = true
				if parent, ok := g.nodes[cur]; ok {
					parent.children[otherID] = struct{}{}
				}
				queue = append(queue, otherID)
			}
		}
	}
}

// electTip finds the node with maximum (index, then lexicographically
// smallest hash) among fully resolved nodes. Insertion order never
// participates, per spec.md §4.4 determinism rule.
func (g *Graph[B]) electTip() model.BlockIdentifier {
	var best model.BlockIdentifier
	first := true
	for id, n := range g.nodes {
		if !n.resolved {
			continue
		}
		if first {
			best = id
			first = false
			continue
		}
		if id.Index > best.Index {
			best = id
		} else if id.Index == best.Index && id.Hash < best.Hash {
			best = id
		}
	}
	return best
}

// isDescendant reports whether candidate's ancestry (walking parentID
// links) passes through ancestor.
func (g *Graph[B]) isDescendant(candidate, ancestor model.BlockIdentifier) bool {
	cur := candidate
	for {
		if cur == ancestor {
			return true
		}
		n, ok := g.nodes[cur]
		if !ok || !n.hasParent {
			return false
		}
		cur = n.parentID
	}
}

// pathBetween returns the blocks strictly between ancestor (exclusive) and
// descendant (inclusive), oldest-first. descendant must be a descendant of
// ancestor.
func (g *Graph[B]) pathBetween(ancestor, descendant model.BlockIdentifier) []B {
	var rev []B
	cur := descendant
	for cur != ancestor {
		n, ok := g.nodes[cur]
		if !ok {
			break
		}
		rev = append(rev, n.block)
		if !n.hasParent {
			break
		}
		cur = n.parentID
	}
	reverse(rev)
	return rev
}

func (g *Graph[B]) lowestCommonAncestor(a, b model.BlockIdentifier) model.BlockIdentifier {
	ancestorsOfA := make(map[model.BlockIdentifier]struct{})
	cur := a
	for {
		ancestorsOfA[cur] = struct{}{}
		n, ok := g.nodes[cur]
		if !ok || !n.hasParent {
			break
		}
		cur = n.parentID
	}
	cur = b
	for {
		if _, ok := ancestorsOfA[cur]; ok {
			return cur
		}
		n, ok := g.nodes[cur]
		if !ok || !n.hasParent {
			return cur
		}
		cur = n.parentID
	}
}

// markCanonicalPath flags every node on the path from tip back to the
// earliest retained ancestor as canonical, and everything else as not.
// Fork-closure (spec.md §8) follows: the parent of a canonical node is
// itself canonical.
func (g *Graph[B]) markCanonicalPath(tip model.BlockIdentifier) {
	onPath := make(map[model.BlockIdentifier]struct{})
	cur := tip
	for {
		onPath[cur] = struct{}{}
		n, ok := g.nodes[cur]
		if !ok || !n.hasParent {
			break
		}
		cur = n.parentID
	}
	for id, n := range g.nodes {
		_, canonical := onPath[id]
		n.canonical = canonical
	}
}

// prune drops nodes older than canonical_tip.index - retention_window
// that have no descendant at or beyond that cutoff. Every ancestor of a
// retained node is kept, so the canonical chain behind the tip is never
// pruned; only side branches and orphans that end before the cutoff are
// dropped.
func (g *Graph[B]) prune() {
	if !g.haveTip {
		return
	}
	tip := g.nodes[g.canonical]
	if tip == nil {
		return
	}
	cutoff := int64(tip.block.Ident().Index) - int64(g.settings.RetentionWindow)
	if cutoff <= 0 {
		return
	}
	var pruned int
	for id, n := range g.nodes {
		if int64(id.Index) >= cutoff {
			continue
		}
		if g.hasChildWithinWindow(id, uint64(cutoff)) {
			continue
		}
		if n.hasParent {
			if parent, ok := g.nodes[n.parentID]; ok {
				delete(parent.children, id)
			}
		}
		delete(g.nodes, id)
		pruned++
	}
	if pruned > 0 && g.settings.Metrics != nil {
		g.settings.Metrics.NodesPruned.WithLabelValues(g.settings.Chain).Add(float64(pruned))
	}
}

func (g *Graph[B]) hasChildWithinWindow(id model.BlockIdentifier, cutoff uint64) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	for childID := range n.children {
		if childID.Index >= cutoff {
			return true
		}
		if g.hasChildWithinWindow(childID, cutoff) {
			return true
		}
	}
	return false
}

// Blocks returns every resolved block currently held by the graph, ordered
// by insertion sequence, i.e. arrival order: a block that arrived before
// its parent is listed before that parent. Unresolved orphans are left
// out. Used by the checkpoint package to snapshot a graph to disk;
// reloading replays these through Process in the same order (spec.md §6
// "Persisted state layout").
func (g *Graph[B]) Blocks() []B {
	type seqBlock struct {
		seq   uint64
		block B
	}
	ordered := make([]seqBlock, 0, len(g.nodes))
	for _, n := range g.nodes {
		if !n.resolved {
			continue
		}
		ordered = append(ordered, seqBlock{seq: n.seq, block: n.block})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	out := make([]B, len(ordered))
	for i, sb := range ordered {
		out[i] = sb.block
	}
	return out
}

func reverse[B any](s []B) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
