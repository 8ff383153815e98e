package signal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(nodes []*Node) []uint64 {
	out := make([]uint64, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

func TestNodeSet(t *testing.T) {
	a, b, c := &Node{id: 1}, &Node{id: 2}, &Node{id: 3}
	s := newNodeSet()

	for _, n := range []*Node{a, b, c} {
		if !s.add(n) {
			t.Errorf("add(%d) = false", n.id)
		}
	}
	if s.add(b) {
		t.Error("duplicate add should report false")
	}
	if !s.remove(b) || s.remove(b) {
		t.Error("remove should succeed exactly once")
	}
	if s.has(b) {
		t.Error("removed node still a member")
	}
	if diff := cmp.Diff([]uint64{1, 3}, ids(s.snapshot())); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	s.clear()
	if s.len() != 0 || s.has(a) {
		t.Error("clear left members behind")
	}
	if !s.add(a) {
		t.Error("add after clear failed")
	}
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	a, b := &Node{id: 1}, &Node{id: 2}

	r.subscribe(10, a)
	r.subscribe(10, b)
	r.subscribe(20, a)
	if r.subscribe(10, a) {
		t.Error("duplicate subscription should report false")
	}

	if r.len() != 2 || r.count(10) != 2 {
		t.Fatalf("len = %d, count(10) = %d", r.len(), r.count(10))
	}
	if diff := cmp.Diff([]uint64{1, 2}, ids(r.subscribers(10))); diff != "" {
		t.Errorf("subscribers (-want +got):\n%s", diff)
	}

	r.unsubscribe(10, a)
	r.unsubscribe(10, b)
	r.unsubscribe(99, a)
	if r.len() != 1 {
		t.Errorf("empty entry not deleted, len = %d", r.len())
	}
	if r.subscribers(10) != nil {
		t.Error("subscribers of unknown id should be nil")
	}
}
