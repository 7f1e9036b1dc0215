// Package session drives one JSON-RPC conversation over a transport:
// the state machine of §3 (NEW → INITIALIZING → READY → CLOSED), the
// per-session monotonic request-id counter, and the pending-outbound
// correlation table shared by both the Server and Client roles.
package session

import (
	"fmt"
	"sync"

	"github.com/mhpenta/mcpcore/protocol"
	"github.com/mhpenta/mcpcore/transport"
)

// State is one point in the session lifecycle.
type State int

const (
	StateNew State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// InvalidStateError reports an operation attempted outside the state
// that permits it.
type InvalidStateError struct {
	Operation string
	Current   State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session: %s is not valid in state %s", e.Operation, e.Current)
}

// base holds the machinery common to both roles: the transport, the
// state machine, the id counter, and the pending-outbound table. Server
// and Client embed it and add their own dispatch behavior.
type base struct {
	transport transport.Transport

	mu    sync.Mutex
	state State
	next  int64

	pendingMu sync.Mutex
	pending   map[protocol.RequestId]chan *protocol.Response
}

func newBase(tr transport.Transport) base {
	return base{
		transport: tr,
		state:     StateNew,
		next:      1,
		pending:   make(map[protocol.RequestId]chan *protocol.Response),
	}
}

// State returns the session's current state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// nextID allocates the next monotonically increasing request id.
func (b *base) nextID() protocol.RequestId {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := protocol.NumberID(b.next)
	b.next++
	return id
}

// register installs a waiter for id before the request carrying it is
// sent, so a response racing ahead of the registration can never be
// dropped.
func (b *base) register(id protocol.RequestId) chan *protocol.Response {
	ch := make(chan *protocol.Response, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()
	return ch
}

func (b *base) unregister(id protocol.RequestId) {
	b.pendingMu.Lock()
	delete(b.pending, id)
	b.pendingMu.Unlock()
}

// complete resolves the waiter registered for resp.ID, if any. A
// Response whose id has no registered waiter is dropped (unknown id,
// or a late arrival after the host's timeout wrapper already removed
// the entry).
func (b *base) complete(resp *protocol.Response) (delivered bool) {
	b.pendingMu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.pendingMu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	return true
}

// Close releases the underlying transport and transitions to CLOSED.
func (b *base) Close() error {
	b.setState(StateClosed)
	return b.transport.Close()
}
