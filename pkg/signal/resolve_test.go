package signal

import "testing"

func TestResolve(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSignal(rt, 5)
	m := CreateMemo(rt, func() string { return "memo" }, "memo")

	if !IsResolvable(s) || !IsResolvable(m) {
		t.Error("signals and memos should be resolvable")
	}
	if IsResolvable(5) {
		t.Error("plain values are not resolvable")
	}
	if Resolve(7) != 7 {
		t.Error("Resolve should return plain values unchanged")
	}
	if Resolve(s) != 5 {
		t.Errorf("Resolve(signal) = %v", Resolve(s))
	}
	if ResolveAs[string](m) != "memo" {
		t.Errorf("ResolveAs(memo) = %q", ResolveAs[string](m))
	}
	if ResolveAs[string](s) != "" {
		t.Error("ResolveAs with the wrong type should return the zero value")
	}
}

func TestResolveTracks(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := NewSignal(rt, 1)

	runs := 0
	counter(rt, &runs, func() { Resolve(s) })
	rt.Drain()
	s.Set(2)
	rt.Drain()

	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}
