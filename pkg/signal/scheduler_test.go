package signal

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEffectNeverRunsSynchronously(t *testing.T) {
	rt, _ := newTestRuntime(t)

	runs := 0
	counter(rt, &runs, nil)
	if runs != 0 {
		t.Fatal("effect ran during creation")
	}
	if rt.Microtasks() != 1 {
		t.Errorf("Microtasks() = %d, want 1", rt.Microtasks())
	}
	rt.Drain()
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestMemoChainSettlesInOneFlush(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a := NewSignal(rt, 1)
	double := CreateMemo(rt, func() int { return a.Get() * 2 }, 0)
	plusOne := CreateMemo(rt, func() int { return double.Get() + 1 }, 0)

	var log []int
	record(rt, &log, plusOne.Get)
	rt.Drain()

	a.Set(5)
	if n := rt.Drain(); n != 1 {
		t.Errorf("Drain() = %d, want a single flush", n)
	}
	if diff := cmp.Diff([]int{3, 11}, log); diff != "" {
		t.Errorf("log (-want +got):\n%s", diff)
	}
}

func TestNodeRunsAtMostOncePerFlush(t *testing.T) {
	rt, _ := newTestRuntime(t)
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)

	var seen [][2]int
	record(rt, &seen, func() [2]int { return [2]int{a.Get(), b.Get()} })
	counter(rt, new(int), func() { b.Set(a.Get() * 10) })
	rt.Drain()

	// The reader runs first in the flush; the writer's change to b lands
	// after the reader already ran and waits for the next flush.
	a.Set(1)
	rt.Drain()

	want := [][2]int{{0, 0}, {1, 0}}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}
	if rt.Scheduled() || rt.Pending() != 0 {
		t.Error("scheduler state should be reset after a flush")
	}
}

func TestFlushOrderFollowsEnqueueOrder(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSignal(rt, 0)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		counter(rt, new(int), func() {
			s.Get()
			order = append(order, name)
		})
	}
	rt.Drain()
	order = nil

	s.Set(1)
	rt.Drain()

	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestDisposedPendingNodeIsSkipped(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSignal(rt, 0)

	runs := 0
	victim := counter(rt, &runs, func() { s.Get() })
	rt.Drain()

	s.Set(1)
	if rt.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", rt.Pending())
	}
	victim.Dispose()
	rt.Drain()

	if runs != 1 {
		t.Errorf("disposed node re-ran: runs = %d", runs)
	}
}

func TestFlushLimit(t *testing.T) {
	rt, sink := newTestRuntime(t, WithMaxFlushRuns(2))
	s := NewSignal(rt, 0)

	total := 0
	for i := 0; i < 3; i++ {
		counter(rt, &total, func() { s.Get() })
	}
	rt.Drain()
	total = 0

	s.Set(1)
	rt.Drain()

	if total != 2 {
		t.Errorf("runs = %d, want the cap of 2", total)
	}
	if len(sink.errs) != 1 || !stderrors.Is(sink.errs[0], ErrFlushLimit) {
		t.Fatalf("errors = %v, want ErrFlushLimit", sink.errs)
	}
	if rt.Scheduled() || rt.Pending() != 0 {
		t.Error("scheduler state should be reset after a capped flush")
	}

	s.Set(2)
	rt.Drain()
	if total != 4 {
		t.Errorf("next flush runs = %d, want 2 more", total-2)
	}
}

func TestObserverEvents(t *testing.T) {
	var events []EventType
	obs := ObserverFunc(func(_ context.Context, e Event) {
		events = append(events, e.Type)
	})
	rt, _ := newTestRuntime(t, WithObserver(obs))
	s := NewSignal(rt, 0)

	var dispose func()
	Root(rt, func(d func()) struct{} {
		dispose = d
		counter(rt, new(int), func() { s.Get() })
		return struct{}{}
	})
	rt.Drain()
	s.Set(1)
	rt.Drain()
	dispose()

	want := []EventType{
		EventNodeRun,
		EventFlushStart,
		EventNodeRun,
		EventFlushEnd,
		EventNodeDisposed,
		EventNodeDisposed,
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestObserverSeesRunErrors(t *testing.T) {
	var runErr, unhandled error
	obs := ObserverFunc(func(_ context.Context, e Event) {
		switch e.Type {
		case EventNodeRun:
			runErr = e.Err
		case EventUnhandledError:
			unhandled = e.Err
		}
	})
	rt, _ := newTestRuntime(t, WithObserver(obs))
	boom := stderrors.New("boom")
	CreateEffectE(rt, func(int) (int, error) { return 0, boom }, 0)
	rt.Drain()

	if !stderrors.Is(runErr, boom) {
		t.Errorf("node.run Err = %v, want boom", runErr)
	}
	if !stderrors.Is(unhandled, boom) {
		t.Errorf("error.unhandled Err = %v, want boom", unhandled)
	}
}

func TestStats(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSignal(rt, 0)
	counter(rt, new(int), func() { s.Get() })
	rt.Drain()
	s.Set(1)

	got := rt.Stats()
	want := Stats{
		ID:              rt.ID(),
		RegistryEntries: 1,
		Pending:         1,
		Scheduled:       true,
		Microtasks:      1,
		NodesCreated:    1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats() (-want +got):\n%s", diff)
	}

	rt.Drain()
	if rt.Stats().Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", rt.Stats().Flushes)
	}
}
