// Package diagnostics implements the structured diagnostic event channel
// required by spec.md §7: "every rejected hook, every dropped payload, and
// every reorg is emitted as a structured diagnostic event on a dedicated
// observer channel. The core itself prints nothing."
//
// Grounded on clarinet-deployments/src/diagnostic_digest.rs
// (original_source/), generalized per SPEC_FULL.md "Supplemented
// Features" #4 into a Digest of per-severity counts that can be read
// without draining the channel.
package diagnostics

import "sync"

// Severity tags a diagnostic event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind tags the diagnostic event's category.
type Kind string

const (
	KindHookRejected    Kind = "hook_rejected"
	KindPayloadDropped  Kind = "payload_dropped"
	KindReorg           Kind = "reorg"
	KindMalformedInput  Kind = "malformed_input"
	KindGraphInvariant  Kind = "graph_invariant_violation"
	KindDispatchError   Kind = "dispatch_error"
	KindFilesystemError Kind = "filesystem_error"
	KindPanic           Kind = "panic"
)

// Event is one structured diagnostic observation.
type Event struct {
	Severity Severity
	Kind     Kind
	Subsystem string
	Message  string
	Detail   map[string]string
}

// Channel fans diagnostic events out to any number of subscribers and
// maintains a rolling Digest. Publishers never block: a full subscriber
// queue drops the event for that subscriber only (never for others, and
// never blocks the publisher).
type Channel struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	digest      Digest
}

// New returns a Channel with no subscribers.
func New() *Channel {
	return &Channel{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a new observer with a bounded inbox of the given
// size, returning the inbox and an unsubscribe function.
func (c *Channel) Subscribe(bufSize int) (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	ch := make(chan Event, bufSize)
	c.subscribers[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(existing)
		}
	}
}

// Publish records the event in the Digest and fans it out to every
// subscriber, dropping it (never blocking) for any subscriber whose inbox
// is full.
func (c *Channel) Publish(ev Event) {
	c.mu.Lock()
	c.digest.record(ev.Severity)
	subs := make([]chan Event, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Digest returns a snapshot of the rolling severity counters.
func (c *Channel) Digest() Digest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.digest
}

// Digest is a read-only count of diagnostic events by severity, cumulative
// since the Channel was created. It counts severities only: event kinds
// are not tracked and there is no time window.
type Digest struct {
	Info    uint64
	Warning uint64
	Error   uint64
}

func (d *Digest) record(s Severity) {
	switch s {
	case SeverityInfo:
		d.Info++
	case SeverityWarning:
		d.Warning++
	case SeverityError:
		d.Error++
	}
}

// Total returns the sum of all recorded events.
func (d Digest) Total() uint64 {
	return d.Info + d.Warning + d.Error
}
