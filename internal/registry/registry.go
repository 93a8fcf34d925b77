// Package registry implements the session-scoped ledger of graph nodes.
//
// Every node created while a Registry is active is appended to it and gets an
// integer handle (its index in the ledger). Closing the registry releases the
// data of every tracked node in one sweep, which is the primary way buffers are
// reclaimed: graphs are numerous and short-lived compared to a training loop,
// and their buffers must be freed promptly instead of waiting for the collector.
//
// Usage:
//
//	err := registry.Scope("step", func(r *registry.Registry) error {
//	    // ... build graph, run backward, read gradients ...
//	    return nil
//	})
package registry

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Node is a graph node whose lifetime is tracked by a Registry.
//
// Close must be idempotent: closing a node that is already Closing or Closed
// is a no-op, since shared substructure can be reached from several paths.
type Node interface {
	State() State
	Close() error
}

// Sizer is implemented by nodes that can report how many bytes they hold.
type Sizer interface {
	NumBytes() int
}

// Registry is an append-only ledger of nodes for one named session.
//
// Inserts are serialized with a mutex so graphs may be built from several
// goroutines sharing a registry, but the graph itself is not safe for
// concurrent mutation.
type Registry struct {
	mu    sync.Mutex
	name  string
	id    uuid.UUID
	nodes []Node
	// base is the handle of nodes[0]. Clear advances it so handles are never
	// reused within a registry.
	base int
}

// New creates an empty registry for the named session.
func New(name string) *Registry {
	return &Registry{
		name:  name,
		id:    uuid.New(),
		nodes: make([]Node, 0, 64),
	}
}

// Name returns the session name.
func (r *Registry) Name() string {
	return r.name
}

// ID returns the unique session identifier.
func (r *Registry) ID() uuid.UUID {
	return r.id
}

// Register appends n to the ledger and returns its handle.
func (r *Registry) Register(n Node) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = append(r.nodes, n)
	return r.base + len(r.nodes) - 1
}

// Node returns the node registered under handle id, or nil if the handle is
// unknown or was dropped by Clear.
func (r *Registry) Node(id int) Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := id - r.base
	if i < 0 || i >= len(r.nodes) {
		return nil
	}
	return r.nodes[i]
}

// Len returns the number of tracked nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// snapshot copies the ledger so nodes can be closed without holding the lock.
func (r *Registry) snapshot() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]Node, len(r.nodes))
	copy(nodes, r.nodes)
	return nodes
}

// Close closes every tracked node once.
//
// Calling Close again is safe: nodes already closed are skipped. Release
// failures do not stop the sweep; the first one is returned with the count of
// failed nodes.
func (r *Registry) Close() error {
	var (
		firstErr error
		failed   int
		closed   int
	)
	for _, n := range r.snapshot() {
		if n.State() != Open {
			continue
		}
		if err := n.Close(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			klog.Warningf("registry %q: failed to release node: %v", r.name, err)
		}
		closed++
	}
	klog.V(1).Infof("registry %q (%s): closed %d node(s), %d failure(s)", r.name, r.id, closed, failed)
	if firstErr != nil {
		return errors.Wrapf(firstErr, "registry %q: %d node(s) failed to release", r.name, failed)
	}
	return nil
}

// AllClosed reports whether every tracked node reached the Closed state.
func (r *Registry) AllClosed() bool {
	for _, n := range r.snapshot() {
		if n.State() != Closed {
			return false
		}
	}
	return true
}

// Clear drops the bookkeeping so the registry can be reused.
// Nodes are not closed; call Close first to release them. Handles issued
// before Clear are not reused: Node returns nil for them.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base += len(r.nodes)
	clear(r.nodes)
	r.nodes = r.nodes[:0]
}

// Stats summarizes the lifecycle states of tracked nodes.
type Stats struct {
	Open, Closing, Closed int
	// Bytes held by nodes that are not yet closed, for nodes implementing Sizer.
	Bytes uint64
}

// String renders the stats in a human-readable form.
func (s Stats) String() string {
	return fmt.Sprintf("%d open, %d closing, %d closed, %s held",
		s.Open, s.Closing, s.Closed, humanize.Bytes(s.Bytes))
}

// Stats counts tracked nodes per state.
func (r *Registry) Stats() Stats {
	var s Stats
	for _, n := range r.snapshot() {
		switch n.State() {
		case Open:
			s.Open++
		case Closing:
			s.Closing++
		case Closed:
			s.Closed++
			continue
		}
		if sz, ok := n.(Sizer); ok {
			s.Bytes += uint64(sz.NumBytes())
		}
	}
	return s
}

// String returns the session name, id and stats.
func (r *Registry) String() string {
	return fmt.Sprintf("Registry(%s, %s: %d nodes, %s)", r.name, r.id, r.Len(), r.Stats())
}
