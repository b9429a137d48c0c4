// Package checkpoint implements the optional on-disk fork-graph
// checkpoint described in spec.md §6 "Persisted state layout": a single
// JSON snapshot `{canonical_tip, nodes}` per chain, stored in a
// goleveldb database keyed by chain name. Reloading a snapshot replays
// its blocks through forkdag.Graph.Process in insertion order, which
// reconstructs the same canonical path deterministically (spec.md §3
// "Determinism").
//
// Grounded on the teacher's database/ffldb (goleveldb-backed block
// store: OpenFile, Put/Get/Close lifecycle).
package checkpoint

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/daglabs/chainhook/model"
)

// Snapshot is the on-disk representation of one chain's fork graph.
type Snapshot[B any] struct {
	CanonicalTip model.BlockIdentifier `json:"canonical_tip"`
	HasTip       bool                  `json:"has_tip"`
	Nodes        []B                   `json:"nodes"`
}

// Store is a goleveldb-backed key/value store of chain snapshots. Each
// chain's snapshot is stored under its own key so that the Bitcoin and
// Stacks graphs (and the microblock graph) can be checkpointed
// independently.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a goleveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening checkpoint database")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes chain's snapshot, overwriting any prior snapshot for that
// key.
func Save[B any](s *Store, chain string, snapshot Snapshot[B]) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshaling checkpoint snapshot")
	}
	if err := s.db.Put([]byte(chain), data, nil); err != nil {
		return errors.Wrapf(err, "writing checkpoint for chain %q", chain)
	}
	return nil
}

// Load reads chain's snapshot. The second return value is false if no
// snapshot has ever been saved for chain.
func Load[B any](s *Store, chain string) (Snapshot[B], bool, error) {
	data, err := s.db.Get([]byte(chain), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Snapshot[B]{}, false, nil
	}
	if err != nil {
		return Snapshot[B]{}, false, errors.Wrapf(err, "reading checkpoint for chain %q", chain)
	}
	var snapshot Snapshot[B]
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot[B]{}, false, errors.Wrapf(err, "unmarshaling checkpoint for chain %q", chain)
	}
	return snapshot, true, nil
}
