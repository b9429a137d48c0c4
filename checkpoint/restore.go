package checkpoint

import (
	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/forkdag"
)

// Capture builds a Snapshot from a live graph's current state, suitable
// for passing to Save.
func Capture[B forkdag.Block](g *forkdag.Graph[B]) Snapshot[B] {
	tip, hasTip := g.CanonicalTip()
	return Snapshot[B]{
		CanonicalTip: tip,
		HasTip:       hasTip,
		Nodes:        g.Blocks(),
	}
}

// Restore replays a Snapshot's nodes through g.Process in the order they
// were saved, reconstructing the same canonical path (spec.md §3
// "Determinism": replaying the same blocks in the order that produced
// them yields the same canonical_tip). It returns an error if a
// constituent block is rejected, which indicates a corrupted or
// hand-edited snapshot rather than a transient condition.
func Restore[B forkdag.Block](g *forkdag.Graph[B], snapshot Snapshot[B]) error {
	for _, block := range snapshot.Nodes {
		if _, err := g.Process(block); err != nil {
			return errors.Wrapf(err, "replaying checkpointed block %s", block.Ident())
		}
	}
	if tip, hasTip := g.CanonicalTip(); hasTip != snapshot.HasTip || tip != snapshot.CanonicalTip {
		return errors.Errorf("checkpoint replay diverged: want tip %s, got %s", snapshot.CanonicalTip, tip)
	}
	return nil
}
