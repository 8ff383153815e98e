package signal

import (
	"github.com/hashicorp/go-multierror"
)

// Kind distinguishes pure ownership scopes from computations.
type Kind uint8

const (
	// KindScope is a node without a recomputation function, created by Root.
	KindScope Kind = iota + 1

	// KindComputation is an effect, memo or deferred node.
	KindComputation
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindScope:
		return "scope"
	case KindComputation:
		return "computation"
	default:
		return "unknown"
	}
}

// Node is a unit of reactive execution and a position in the ownership tree.
//
// Scopes only group descendants. Computations additionally hold a
// recomputation function and the signals they read during their last run.
type Node struct {
	rt   *Runtime
	id   uint64
	kind Kind

	parent   *Node
	children []*Node

	// sources are the ids of the signals this node is subscribed to.
	// Kept in sync with the registry at every quiescent point.
	sources []uint64

	// cleanups run most-recent first when the node is cleaned.
	cleanups []func()

	// context is created lazily by Provide and CatchError.
	context map[any]any

	// run invokes the recomputation function. nil for scopes and for
	// disposed computations.
	run func() error

	disposed bool
}

// newNode creates a node attached as the last child of the current node.
func (rt *Runtime) newNode(kind Kind) *Node {
	n := &Node{
		rt:   rt,
		id:   rt.nextID(),
		kind: kind,
	}
	if p := rt.current; p != nil {
		n.parent = p
		p.children = append(p.children, n)
	}
	rt.nodesCreated++
	return n
}

// ID returns the unique identifier for this node.
func (n *Node) ID() uint64 {
	return n.id
}

// Kind returns whether n is a scope or a computation.
func (n *Node) Kind() Kind {
	return n.kind
}

// Parent returns the owning node, or nil for a top-level or disposed node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the node's children in creation order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Disposed reports whether the node has been disposed.
func (n *Node) Disposed() bool {
	return n.disposed
}

// SourceCount returns the number of signals the node is subscribed to.
func (n *Node) SourceCount() int {
	return len(n.sources)
}

// CleanupCount returns the number of registered cleanup callbacks.
func (n *Node) CleanupCount() int {
	return len(n.cleanups)
}

// Dispose recursively disposes the node and its descendants, detaching it
// from its parent. Disposing twice is a no-op.
func (n *Node) Dispose() {
	n.rt.dispose(n)
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// dispose detaches n from its parent and tears it down. Errors raised by
// cleanups are routed from the parent's position, since n's own context is
// gone by then.
func (rt *Runtime) dispose(n *Node) {
	if n.disposed {
		return
	}
	parent := n.parent
	if parent != nil {
		parent.removeChild(n)
	}
	if err := rt.clean(n, true); err != nil {
		rt.handleError(parent, err)
	}
}

// clean resets n before a re-run, or tears it down when dispose is true.
//
// Signals are unsubscribed, children are cleaned last-first (computations
// are always disposed, scopes inherit dispose), cleanups run most-recent
// first and the context is cleared. Panics raised by cleanups are collected
// and returned so the rest of the teardown still happens.
func (rt *Runtime) clean(n *Node, dispose bool) error {
	var result *multierror.Error

	for len(n.sources) > 0 {
		last := len(n.sources) - 1
		id := n.sources[last]
		n.sources = n.sources[:last]
		rt.registry.unsubscribe(id, n)
	}

	for len(n.children) > 0 {
		last := len(n.children) - 1
		child := n.children[last]
		n.children[last] = nil
		n.children = n.children[:last]
		if err := rt.clean(child, child.kind == KindComputation || dispose); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for len(n.cleanups) > 0 {
		last := len(n.cleanups) - 1
		fn := n.cleanups[last]
		n.cleanups[last] = nil
		n.cleanups = n.cleanups[:last]
		if err := runCleanup(fn); err != nil {
			result = multierror.Append(result, err)
		}
	}

	n.context = nil

	if dispose && !n.disposed {
		n.disposed = true
		n.run = nil
		n.parent = nil
		n.children = nil
		n.sources = nil
		n.cleanups = nil
		rt.emit(Event{Type: EventNodeDisposed, NodeID: n.id, NodeKind: n.kind})
	}

	return result.ErrorOrNil()
}

func runCleanup(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	fn()
	return nil
}

// OnCleanup registers fn on the current node. Cleanups run most-recent
// first before the node re-runs and when it is disposed.
// It panics with a usage error when called outside of any scope.
func (rt *Runtime) OnCleanup(fn func()) {
	if rt.current == nil {
		panic(usageError("E003", "OnCleanup"))
	}
	rt.current.cleanups = append(rt.current.cleanups, fn)
}

// NodeInfo is a serializable snapshot of a node and its descendants.
type NodeInfo struct {
	ID          uint64     `json:"id"`
	Kind        string     `json:"kind"`
	Sources     int        `json:"sources"`
	Cleanups    int        `json:"cleanups"`
	ContextKeys int        `json:"context_keys"`
	Disposed    bool       `json:"disposed,omitempty"`
	Children    []NodeInfo `json:"children,omitempty"`
}

// Info returns a snapshot of n and its subtree.
func (n *Node) Info() NodeInfo {
	info := NodeInfo{
		ID:          n.id,
		Kind:        n.kind.String(),
		Sources:     len(n.sources),
		Cleanups:    len(n.cleanups),
		ContextKeys: len(n.context),
		Disposed:    n.disposed,
	}
	for _, c := range n.children {
		info.Children = append(info.Children, c.Info())
	}
	return info
}
