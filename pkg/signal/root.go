package signal

// Root runs fn in a new ownership scope and returns its result.
//
// The scope becomes a child of the current node, if any. fn receives a
// disposer that tears down the scope and everything created inside it.
// A panic inside fn is recovered and routed to error handling with the
// scope as the starting point; Root then returns the zero R.
func Root[R any](rt *Runtime, fn func(dispose func()) R) R {
	return RootE(rt, func(dispose func()) (R, error) {
		return fn(dispose), nil
	})
}

// RootE is Root for setup functions that can fail. A non-nil error is
// routed like a panic and RootE returns the zero R.
func RootE[R any](rt *Runtime, fn func(dispose func()) (R, error)) (result R) {
	n := rt.newNode(KindScope)
	prev := rt.current
	rt.current = n
	defer func() { rt.current = prev }()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(r)
			}
		}()
		result, err = fn(func() { rt.dispose(n) })
	}()

	if err != nil {
		var zero R
		rt.handleError(n, err)
		return zero
	}
	return result
}
