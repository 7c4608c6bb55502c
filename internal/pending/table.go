// Package pending implements the coordinator's nonce-to-reply-sink table:
// a concurrent map from a per-request nonce to a one-shot channel that
// delivers the matching response. The table is safe for concurrent
// access directly, since both the façade (insert, timeout-remove) and
// the coordinator (match-and-deliver) touch it without routing through a
// single actor.
package pending

import (
	"sync"

	"go.alderamin.dev/dgrpc/internal/wire"
)

// Reply is what the coordinator delivers to a waiting caller: either a
// decoded envelope or an error (encode failure, transport failure).
type Reply struct {
	Envelope wire.Envelope
	Err      error
}

// Table maps nonce to a one-shot reply channel. At most one entry exists
// per nonce; entries are removed exactly once, by whichever of
// (response delivery, writer-failure rollback, caller timeout) happens
// first.
type Table struct {
	mu      sync.Mutex
	entries map[string]chan Reply
}

// New returns an empty pending table.
func New() *Table {
	return &Table{entries: make(map[string]chan Reply)}
}

// Insert registers nonce with a buffered reply channel and returns it.
// Insert panics if nonce is already registered: the pending-table
// invariant is that nonces are unique per in-flight request, and a
// caller that generates a colliding nonce has a bug worth surfacing
// immediately rather than silently clobbering another waiter.
func (t *Table) Insert(nonce string) <-chan Reply {
	ch := make(chan Reply, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[nonce]; exists {
		panic("pending: duplicate nonce inserted: " + nonce)
	}
	t.entries[nonce] = ch
	return ch
}

// Remove deletes nonce from the table without sending anything, for use
// by a caller that gave up waiting (timeout). It is safe to call Remove
// for a nonce that has already been delivered or removed; it is a no-op
// in that case.
func (t *Table) Remove(nonce string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, nonce)
}

// Deliver removes nonce from the table and sends reply on its channel.
// It reports false if nonce has no pending entry (already delivered,
// already timed out, or never inserted — most likely the caller's wait
// already expired). The coordinator logs and drops on a false return.
func (t *Table) Deliver(nonce string, reply Reply) bool {
	t.mu.Lock()
	ch, ok := t.entries[nonce]
	if ok {
		delete(t.entries, nonce)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	ch <- reply
	return true
}

// Len reports the number of currently pending nonces. Used by tests to
// assert that no entries leak after a batch of requests completes.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ConnectSentinel is the fixed nonce assigned to the handshake waiter.
// Discord's initial handshake carries no client-assigned nonce, so the
// coordinator rewrites the unsolicited READY event's nonce to this value
// before delivery. It is never reused for any other request.
const ConnectSentinel = "00000000-0000-0000-0000-000000000000"
