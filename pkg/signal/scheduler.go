package signal

import (
	"github.com/vango-dev/space/internal/errors"
)

// enqueue adds n to the pending set and wakes the scheduler. Waking is
// idempotent: only the first enqueue after a flush queues a flush.
func (rt *Runtime) enqueue(n *Node) {
	rt.pending.add(n)
	if !rt.scheduled {
		rt.scheduled = true
		rt.queueMicrotask(rt.flush)
	}
}

// schedule queues the first run of a new computation. During a flush (or
// while one is queued) it joins the pending set; otherwise it gets its own
// microtask.
func (rt *Runtime) schedule(n *Node) {
	if rt.scheduled {
		rt.pending.add(n)
		return
	}
	rt.queueMicrotask(func() { rt.update(n) })
}

// flush re-runs every pending node once, in insertion order. Nodes queued
// while the flush runs are appended and processed before it ends; a node
// that already ran in this flush stays in the set, so it is not queued
// again until the next flush. A usage error raised by a node is held until
// the pending set is exhausted and then re-raised to the host.
func (rt *Runtime) flush() {
	if !rt.scheduled {
		return
	}
	start := rt.now()
	rt.flushes++
	rt.emit(Event{Type: EventFlushStart, Pending: rt.pending.len()})

	runs := 0
	var usage any
	defer func() {
		rt.pending.clear()
		rt.scheduled = false
		rt.emit(Event{Type: EventFlushEnd, Runs: runs, Duration: rt.now().Sub(start)})
		if usage != nil {
			panic(usage)
		}
	}()

	for i := 0; i < rt.pending.len(); i++ {
		if rt.maxFlushRuns > 0 && runs >= rt.maxFlushRuns {
			dropped := rt.pending.len() - i
			rt.logger.Error("flush run limit exceeded",
				"limit", rt.maxFlushRuns,
				"dropped", dropped)
			err := errors.New("E010").WithOp("flush").Wrap(ErrFlushLimit)
			rt.reportUnhandled(nil, err)
			return
		}
		if r := rt.updateInFlush(rt.pending.at(i)); r != nil && usage == nil {
			usage = r
		}
		runs++
	}
}

// updateInFlush runs update and returns a usage error raised by the node
// instead of unwinding the flush. The flush re-raises the first one after
// every pending node has run.
func (rt *Runtime) updateInFlush(n *Node) (usage any) {
	defer func() {
		if r := recover(); r != nil {
			if !errors.IsUsage(r) {
				panic(r)
			}
			usage = r
		}
	}()
	rt.update(n)
	return nil
}

// update cleans n and, if it is a live computation, re-runs it with n as
// the tracking context. A failed run keeps the previous value and is routed
// to the nearest error handler.
func (rt *Runtime) update(n *Node) {
	if n.disposed {
		return
	}
	if err := rt.clean(n, false); err != nil {
		rt.handleError(n, err)
	}
	if n.run == nil {
		return
	}

	prev, prevUntracked := rt.current, rt.untracked
	rt.current, rt.untracked = n, false
	defer func() { rt.current, rt.untracked = prev, prevUntracked }()

	start := rt.now()
	err := invoke(n.run)
	if err != nil {
		rt.handleError(n, err)
	}
	rt.emit(Event{
		Type:     EventNodeRun,
		NodeID:   n.id,
		NodeKind: n.kind,
		Duration: rt.now().Sub(start),
		Err:      err,
	})
}

func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return fn()
}
