package hooks

import "sync"

// Registry holds chainhook specifications partitioned by chain, and their
// occurrence counters (spec.md §4.7 "Registry state"). It is a
// reader-majority structure per spec.md §5: writers take an exclusive
// lock, readers (the Dispatcher's evaluate loop) take a shared lock for
// the duration of one event's fan-out.
type Registry struct {
	mu    sync.RWMutex
	hooks map[Chain]map[string]*ResolvedHook
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: map[Chain]map[string]*ResolvedHook{
			ChainBitcoin: {},
			ChainStacks:  {},
		},
	}
}

// Register adds or replaces a hook. Never stores a hook partially: the
// caller is expected to have already produced a fully-resolved,
// validated ResolvedHook via ParseSpecification.
func (r *Registry) Register(h *ResolvedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[h.Chain][h.UUID] = h
}

// Deregister removes a hook by uuid, if present.
func (r *Registry) Deregister(chain Chain, uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks[chain], uuid)
}

// Get returns the hook with the given uuid, if registered.
func (r *Registry) Get(chain Chain, uuid string) (*ResolvedHook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[chain][uuid]
	return h, ok
}

// Active returns every hook of chain that is activatable at blockIndex,
// per spec.md §4.7's activation rules. Expiry itself is recorded by
// RecordOccurrence (the write path); this is a read-only shared-lock
// scan, matching spec.md §5's reader-majority registry.
func (r *Registry) Active(chain Chain, blockIndex uint64) []*ResolvedHook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*ResolvedHook, 0, len(r.hooks[chain]))
	for _, h := range r.hooks[chain] {
		if !h.Enabled || h.ExpiredAt != nil {
			continue
		}
		if h.StartBlock != nil && blockIndex < *h.StartBlock {
			continue
		}
		if h.EndBlock != nil && blockIndex > *h.EndBlock {
			continue
		}
		active = append(active, h)
	}
	return active
}

// RecordOccurrence increments uuid's occurrence counter by matchCount and
// marks the hook expired if it has now reached expire_after_occurrence.
func (r *Registry) RecordOccurrence(chain Chain, uuid string, matchCount uint64, atBlock uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hooks[chain][uuid]
	if !ok {
		return
	}
	h.occurrenceCount += matchCount
	if h.ExpireAfterOccurrence != nil && h.occurrenceCount >= *h.ExpireAfterOccurrence {
		expiredAt := atBlock
		h.ExpiredAt = &expiredAt
	}
}

// OccurrenceCount returns the current occurrence count for uuid.
func (r *Registry) OccurrenceCount(chain Chain, uuid string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[chain][uuid]
	if !ok {
		return 0
	}
	return h.occurrenceCount
}
