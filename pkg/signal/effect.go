package signal

// CreateEffect creates a computation owned by the current node.
//
// fn receives the value it returned last time (initial on the first run)
// and re-runs whenever a signal it read during its previous run changes.
// The first run never happens synchronously: it is queued for the next
// microtask boundary, or appended to the flush in progress.
//
// A panic inside fn is recovered and routed to the nearest CatchError
// handler; the previous value is kept.
//
// Example:
//
//	signal.CreateEffect(rt, func(runs int) int {
//	    fmt.Println("Count is:", count.Get())
//	    return runs + 1
//	}, 0)
func CreateEffect[T any](rt *Runtime, fn func(prev T) T, initial T) *Node {
	return CreateEffectE(rt, func(prev T) (T, error) {
		return fn(prev), nil
	}, initial)
}

// CreateEffectE is CreateEffect for computations that can fail. A non-nil
// error is routed to the nearest CatchError handler and the previous value
// is kept.
func CreateEffectE[T any](rt *Runtime, fn func(prev T) (T, error), initial T) *Node {
	value := initial
	n := rt.newNode(KindComputation)
	n.run = func() error {
		next, err := fn(value)
		if err != nil {
			return err
		}
		value = next
		return nil
	}
	rt.schedule(n)
	return n
}

// OnMount runs fn once, on the next microtask boundary, without tracking
// any dependencies. fn runs inside the effect's node, so it may register
// cleanups, provide context or create child computations.
func OnMount(rt *Runtime, fn func()) *Node {
	return CreateEffect(rt, func(struct{}) struct{} {
		rt.runOwned(fn)
		return struct{}{}
	}, struct{}{})
}

// OnUpdate calls fn every time the signals read by deps change, skipping
// the first run.
//
// Example:
//
//	signal.OnUpdate(rt,
//	    func() { count.Track() },
//	    func() { fmt.Println("Updated!") },
//	)
func OnUpdate(rt *Runtime, deps func(), fn func()) *Node {
	return CreateEffect(rt, On(rt, deps, func(first bool) bool {
		if !first {
			fn()
		}
		return false
	}), true)
}
