// Package signal provides the fine-grained reactive runtime for space.
//
// Reading a signal inside a running computation subscribes that computation
// to the signal. Writing a different value queues every subscriber, and the
// queued computations re-run together on the next microtask boundary.
//
// # Core Types
//
// Runtime is the single-threaded runtime object. It owns the tracking
// pointer, the subscription registry, the scheduler and the host queues:
//
//	rt := signal.New()
//
// Signal[T] is a reactive value container:
//
//	count := signal.NewSignal(rt, 0)
//	value := count.Get()  // Read (subscribes the running computation)
//	count.Set(5)          // Write (queues subscribers if the value changed)
//
// Effects are computations that run on the next microtask boundary and
// again whenever a signal they read changes:
//
//	signal.CreateEffect(rt, func(prev int) int {
//	    fmt.Println("Count is:", count.Get())
//	    return prev + 1
//	}, 0)
//	rt.Drain()
//
// Memo[T] is a read-only signal derived from other signals. Subscribers of a
// memo only re-run when the derived value changes:
//
//	parity := signal.CreateMemo(rt, func() int { return count.Get() % 2 }, 0)
//
// # Ownership
//
// Root creates a disposable scope. Everything created while a scope or a
// computation is running becomes its child and is torn down with it:
//
//	signal.Root(rt, func(dispose func()) struct{} {
//	    rt.OnCleanup(func() { fmt.Println("bye") })
//	    ...
//	    return struct{}{}
//	})
//
// # Context and errors
//
// Provide and Inject pass values down the ownership tree. CatchError
// registers handlers that receive errors and panics raised by descendant
// computations. Errors with no handler go to the runtime's reporter, which
// logs them by default.
//
// # Threading
//
// A Runtime is not safe for concurrent use. All calls must happen on one
// goroutine; pkg/eventloop provides a loop that owns a Runtime and accepts
// work from other goroutines through Dispatch.
package signal
