package signal

import "time"

// Memo is a read-only signal whose value is derived by a computation.
//
// The computation writes into a private signal; readers subscribe to that
// signal, not to the computation's own dependencies. A recomputation that
// produces an equal value therefore does not re-run any reader.
type Memo[T any] struct {
	data *Signal[T]
	node *Node
}

// CreateMemo creates a memo compared with ==. Until its first run (on the
// next microtask boundary) the memo holds initial.
//
// Example:
//
//	parity := signal.CreateMemo(rt, func() int { return x.Get() % 2 }, 0)
func CreateMemo[T comparable](rt *Runtime, fn func() T, initial T) *Memo[T] {
	return CreateMemoFunc(rt, fn, initial, func(a, b T) bool { return a == b })
}

// CreateMemoFunc creates a memo with a caller-supplied equality function.
func CreateMemoFunc[T any](rt *Runtime, fn func() T, initial T, equal func(a, b T) bool) *Memo[T] {
	data := NewSignalFunc(rt, initial, equal)
	node := CreateEffect(rt, func(struct{}) struct{} {
		data.Set(fn())
		return struct{}{}
	}, struct{}{})
	return &Memo[T]{data: data, node: node}
}

// CreateDeferred creates a memo whose writes are delayed to an idle
// callback. The computation itself runs like a memo's, but its result is
// only stored once the host is idle, or after timeout when timeout > 0.
// A re-run before the idle callback fires cancels the pending write, as
// does disposal.
func CreateDeferred[T comparable](rt *Runtime, fn func() T, initial T, timeout time.Duration) *Memo[T] {
	return CreateDeferredFunc(rt, fn, initial, timeout, func(a, b T) bool { return a == b })
}

// CreateDeferredFunc is CreateDeferred with a caller-supplied equality
// function.
func CreateDeferredFunc[T any](rt *Runtime, fn func() T, initial T, timeout time.Duration, equal func(a, b T) bool) *Memo[T] {
	data := NewSignalFunc(rt, initial, equal)
	node := CreateEffect(rt, func(struct{}) struct{} {
		value := fn()
		h := rt.RequestIdle(func() { data.Set(value) }, timeout)
		rt.OnCleanup(func() { rt.CancelIdle(h) })
		return struct{}{}
	}, struct{}{})
	return &Memo[T]{data: data, node: node}
}

// Get returns the memo's value and subscribes the running computation.
func (m *Memo[T]) Get() T {
	return m.data.Get()
}

// Peek returns the memo's value without subscribing.
func (m *Memo[T]) Peek() T {
	return m.data.Peek()
}

// Track subscribes the running computation without reading the value.
func (m *Memo[T]) Track() {
	m.data.Track()
}

// Resolve returns the tracked value as any.
func (m *Memo[T]) Resolve() any {
	return m.data.Get()
}

// ID returns the id of the memo's backing signal.
func (m *Memo[T]) ID() uint64 {
	return m.data.ID()
}

// Node returns the computation that derives the memo's value.
func (m *Memo[T]) Node() *Node {
	return m.node
}
