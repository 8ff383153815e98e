package signal

// Untrack runs fn with the tracking context cleared and returns its result.
// Reads inside fn create no subscriptions, and nodes created inside fn have
// no owner. Panics propagate to the caller unchanged.
func Untrack[R any](rt *Runtime, fn func() R) R {
	prev := rt.current
	rt.current = nil
	defer func() { rt.current = prev }()
	return fn()
}

// Untracked is Untrack for functions without a result.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.current
	rt.current = nil
	defer func() { rt.current = prev }()
	fn()
}

// runOwned runs fn with the current node still owning whatever fn creates
// or registers, but without subscribing it to the signals fn reads.
func (rt *Runtime) runOwned(fn func()) {
	prev := rt.untracked
	rt.untracked = true
	defer func() { rt.untracked = prev }()
	fn()
}

// On wraps cb so that only the reads made by deps are tracked. cb itself
// runs untracked.
//
// Example:
//
//	signal.CreateEffect(rt, signal.On(rt,
//	    func() { query.Track() },
//	    func(prev int) int { return prev + len(results.Peek()) },
//	), 0)
func On[T any](rt *Runtime, deps func(), cb func(T) T) func(T) T {
	return func(value T) T {
		deps()
		return Untrack(rt, func() T { return cb(value) })
	}
}

// Deps wraps fn so that the computation depends exactly on sources. fn
// itself runs untracked.
func Deps[T any](rt *Runtime, fn func(T) T, sources ...Source) func(T) T {
	return func(value T) T {
		for _, s := range sources {
			s.Track()
		}
		return Untrack(rt, func() T { return fn(value) })
	}
}
