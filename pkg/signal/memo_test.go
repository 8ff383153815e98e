package signal

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParityMemo(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 0)
	parity := CreateMemo(rt, func() int { return x.Get() % 2 }, 0)

	var seen []int
	record(rt, &seen, parity.Get)
	rt.Drain()

	for _, v := range []int{1, 2, 3} {
		x.Set(v)
		rt.Drain()
	}

	if diff := cmp.Diff([]int{0, 1, 0, 1}, seen); diff != "" {
		t.Errorf("reader values (-want +got):\n%s", diff)
	}
}

func TestMemoSuppressesEqualResults(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 0)

	memoRuns := 0
	parity := CreateMemo(rt, func() int {
		memoRuns++
		return x.Get() % 2
	}, 0)

	readerRuns := 0
	counter(rt, &readerRuns, func() { parity.Get() })
	rt.Drain()

	// Parity goes 0, 0, 1, 1, 0: two flips.
	for _, v := range []int{2, 1, 3, 4} {
		x.Set(v)
		rt.Drain()
	}

	if memoRuns != 5 {
		t.Errorf("memoRuns = %d, want 5", memoRuns)
	}
	if readerRuns != 3 {
		t.Errorf("readerRuns = %d, want 3", readerRuns)
	}
}

func TestMemoHoldsInitialUntilFirstRun(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m := CreateMemo(rt, func() string { return "computed" }, "initial")

	if m.Peek() != "initial" {
		t.Errorf("Peek() = %q before first run", m.Peek())
	}
	rt.Drain()
	if m.Peek() != "computed" {
		t.Errorf("Peek() = %q after first run", m.Peek())
	}
	if m.Node().Kind() != KindComputation {
		t.Error("memo node should be a computation")
	}
}

func TestMemoFuncEquality(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 1)
	m := CreateMemoFunc(rt, func() []int { return []int{x.Get() / 10} }, nil,
		func(a, b []int) bool { return cmp.Equal(a, b) })

	runs := 0
	counter(rt, &runs, func() { m.Track() })
	rt.Drain()

	x.Set(2)
	rt.Drain()
	if runs != 1 {
		t.Errorf("equal slice re-ran reader: runs = %d", runs)
	}
}

func TestDisposedMemoStopsUpdating(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 1)
	m := CreateMemo(rt, func() int { return x.Get() * 2 }, 0)
	rt.Drain()

	m.Node().Dispose()
	x.Set(5)
	rt.Drain()

	if m.Peek() != 2 {
		t.Errorf("Peek() = %d, want last value 2", m.Peek())
	}
}

func TestDeferredWritesWhenIdle(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 0)
	d := CreateDeferred(rt, func() int { return x.Get() * 2 }, -1, 0)

	var seen []int
	record(rt, &seen, d.Get)
	rt.Drain()

	if d.Peek() != -1 {
		t.Errorf("Peek() = %d before idle, want -1", d.Peek())
	}
	if rt.IdlePending() != 1 {
		t.Fatalf("IdlePending() = %d, want 1", rt.IdlePending())
	}

	// A re-run before the host idles replaces the pending write.
	x.Set(1)
	rt.Drain()
	if rt.IdlePending() != 1 {
		t.Errorf("IdlePending() = %d after re-run, want 1", rt.IdlePending())
	}

	if n := rt.RunIdle(); n != 1 {
		t.Errorf("RunIdle() = %d, want 1", n)
	}
	if d.Peek() != 2 {
		t.Errorf("Peek() = %d, want 2", d.Peek())
	}
	if diff := cmp.Diff([]int{-1, 2}, seen); diff != "" {
		t.Errorf("reader values (-want +got):\n%s", diff)
	}
}

func TestDeferredTimeout(t *testing.T) {
	now := time.Unix(1000, 0)
	rt, _ := newTestRuntime(t, WithClock(func() time.Time { return now }))
	x := NewSignal(rt, 3)
	d := CreateDeferred(rt, x.Get, 0, time.Second)
	rt.Drain()

	deadline, ok := rt.NextIdleDeadline()
	if !ok || !deadline.Equal(now.Add(time.Second)) {
		t.Fatalf("NextIdleDeadline() = %v, %v", deadline, ok)
	}

	if n := rt.RunExpiredIdle(now.Add(999 * time.Millisecond)); n != 0 {
		t.Errorf("ran %d tasks before the deadline", n)
	}
	if n := rt.RunExpiredIdle(now.Add(time.Second)); n != 1 {
		t.Errorf("ran %d tasks at the deadline, want 1", n)
	}
	if d.Peek() != 3 {
		t.Errorf("Peek() = %d, want 3", d.Peek())
	}
}

func TestDeferredDisposeCancelsWrite(t *testing.T) {
	rt, _ := newTestRuntime(t)
	x := NewSignal(rt, 1)

	var d *Memo[int]
	dispose := Root(rt, func(dispose func()) func() {
		d = CreateDeferred(rt, x.Get, 0, 0)
		return dispose
	})
	rt.Drain()
	dispose()

	if rt.IdlePending() != 0 {
		t.Errorf("IdlePending() = %d after dispose", rt.IdlePending())
	}
	rt.Settle()
	if d.Peek() != 0 {
		t.Errorf("Peek() = %d, want the initial value", d.Peek())
	}
}
