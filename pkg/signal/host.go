package signal

import "time"

// queueMicrotask appends fn to the microtask queue. Microtasks run in FIFO
// order on the next Drain.
func (rt *Runtime) queueMicrotask(fn func()) {
	rt.microtasks = append(rt.microtasks, fn)
}

// Drain runs queued microtasks until the queue is empty, including
// microtasks queued while draining, and returns how many ran. This is the
// "next microtask boundary": hosts call it once the current synchronous
// turn is complete. A nested call from inside a microtask returns 0.
//
// A panicking microtask is recovered and reported; draining continues.
func (rt *Runtime) Drain() int {
	if rt.draining {
		return 0
	}
	rt.draining = true
	defer func() { rt.draining = false }()

	ran := 0
	for len(rt.microtasks) > 0 {
		fn := rt.microtasks[0]
		rt.microtasks[0] = nil
		rt.microtasks = rt.microtasks[1:]
		rt.runTask(fn)
		ran++
	}
	rt.microtasks = nil
	return ran
}

// Microtasks returns the number of queued microtasks.
func (rt *Runtime) Microtasks() int {
	return len(rt.microtasks)
}

// runTask runs fn, reporting a panic instead of unwinding the host. Usage
// errors are reported too: at this level there is no caller left to
// re-raise them to.
func (rt *Runtime) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.reportUnhandled(nil, panicToError(r))
		}
	}()
	fn()
}

// IdleHandle identifies a queued idle task.
type IdleHandle uint64

type idleTask struct {
	handle   IdleHandle
	fn       func()
	deadline time.Time
}

// idleQueue holds low-priority tasks in request order.
type idleQueue struct {
	tasks []*idleTask
	next  IdleHandle
}

func (q *idleQueue) len() int {
	return len(q.tasks)
}

func (q *idleQueue) take(h IdleHandle) *idleTask {
	for i, t := range q.tasks {
		if t.handle == h {
			copy(q.tasks[i:], q.tasks[i+1:])
			q.tasks[len(q.tasks)-1] = nil
			q.tasks = q.tasks[:len(q.tasks)-1]
			return t
		}
	}
	return nil
}

// RequestIdle queues fn to run when the host is idle. With timeout > 0 the
// task becomes due once the timeout elapses, even if the host never idles.
// The returned handle can be passed to CancelIdle.
func (rt *Runtime) RequestIdle(fn func(), timeout time.Duration) IdleHandle {
	rt.idle.next++
	t := &idleTask{handle: rt.idle.next, fn: fn}
	if timeout > 0 {
		t.deadline = rt.now().Add(timeout)
	}
	rt.idle.tasks = append(rt.idle.tasks, t)
	return t.handle
}

// CancelIdle removes a queued idle task. Cancelling a task that already ran
// or was cancelled is a no-op.
func (rt *Runtime) CancelIdle(h IdleHandle) {
	rt.idle.take(h)
}

// IdlePending returns the number of queued idle tasks.
func (rt *Runtime) IdlePending() int {
	return rt.idle.len()
}

// RunIdle runs the idle tasks queued before the call, draining microtasks
// after each one, and returns how many ran. Tasks requested while running
// wait for the next call.
func (rt *Runtime) RunIdle() int {
	return rt.runIdle(func(*idleTask) bool { return true })
}

// RunExpiredIdle runs the idle tasks whose timeout elapsed at now.
func (rt *Runtime) RunExpiredIdle(now time.Time) int {
	return rt.runIdle(func(t *idleTask) bool {
		return !t.deadline.IsZero() && !now.Before(t.deadline)
	})
}

func (rt *Runtime) runIdle(due func(*idleTask) bool) int {
	handles := make([]IdleHandle, 0, len(rt.idle.tasks))
	for _, t := range rt.idle.tasks {
		if due(t) {
			handles = append(handles, t.handle)
		}
	}

	ran := 0
	for _, h := range handles {
		// An earlier task may have cancelled this one.
		t := rt.idle.take(h)
		if t == nil {
			continue
		}
		rt.runTask(t.fn)
		rt.Drain()
		ran++
	}
	return ran
}

// NextIdleDeadline returns the earliest timeout among queued idle tasks.
func (rt *Runtime) NextIdleDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, t := range rt.idle.tasks {
		if t.deadline.IsZero() {
			continue
		}
		if !found || t.deadline.Before(earliest) {
			earliest = t.deadline
			found = true
		}
	}
	return earliest, found
}

// Settle drains microtasks and runs idle tasks until both queues are empty.
// It does not return while tasks keep queueing more tasks.
func (rt *Runtime) Settle() {
	for {
		ran := rt.Drain()
		ran += rt.RunIdle()
		if ran == 0 && len(rt.microtasks) == 0 && rt.idle.len() == 0 {
			return
		}
	}
}
