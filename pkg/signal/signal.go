package signal

// Source is anything a computation can depend on.
type Source interface {
	// ID returns the registry key of the source.
	ID() uint64

	// Track subscribes the running computation without reading the value.
	Track()
}

// Signal is a reactive value container.
//
// Reading a Signal inside a running computation subscribes that
// computation. Writing a value that differs from the current one queues
// every subscriber for the next flush; writing an equal value does nothing.
type Signal[T any] struct {
	rt    *Runtime
	id    uint64
	value T
	equal func(a, b T) bool
}

// NewSignal creates a signal whose writes are compared with ==.
func NewSignal[T comparable](rt *Runtime, initial T) *Signal[T] {
	return NewSignalFunc(rt, initial, func(a, b T) bool { return a == b })
}

// NewSignalFunc creates a signal with a caller-supplied equality function.
// A nil equal treats every write as a change.
func NewSignalFunc[T any](rt *Runtime, initial T, equal func(a, b T) bool) *Signal[T] {
	if equal == nil {
		equal = func(T, T) bool { return false }
	}
	return &Signal[T]{
		rt:    rt,
		id:    rt.nextID(),
		value: initial,
		equal: equal,
	}
}

// Get returns the current value and subscribes the running computation.
func (s *Signal[T]) Get() T {
	s.rt.track(s.id)
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set stores value and queues subscribers if it differs from the current
// value.
func (s *Signal[T]) Set(value T) {
	if s.equal(s.value, value) {
		return
	}
	s.value = value
	s.rt.publish(s.id)
}

// Update sets the signal to fn applied to the current value. The read is
// not tracked.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Track subscribes the running computation without reading the value.
func (s *Signal[T]) Track() {
	s.rt.track(s.id)
}

// Resolve returns the tracked value as any. It makes a Signal Resolvable.
func (s *Signal[T]) Resolve() any {
	return s.Get()
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.id
}

// track records a subscription in both directions. Only computations
// subscribe; reads inside a scope or outside any node are untracked.
func (rt *Runtime) track(id uint64) {
	n := rt.current
	if n == nil || n.run == nil || rt.untracked {
		return
	}
	if rt.registry.subscribe(id, n) {
		n.sources = append(n.sources, id)
	}
}

// publish queues every subscriber of id.
func (rt *Runtime) publish(id uint64) {
	for _, n := range rt.registry.subscribers(id) {
		rt.enqueue(n)
	}
}
