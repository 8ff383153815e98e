package signal

// nodeSet is an insertion-ordered set of nodes.
type nodeSet struct {
	order   []*Node
	members map[*Node]struct{}
}

func newNodeSet() nodeSet {
	return nodeSet{members: make(map[*Node]struct{})}
}

// add appends n unless it is already present. Reports whether n was added.
func (s *nodeSet) add(n *Node) bool {
	if _, ok := s.members[n]; ok {
		return false
	}
	if s.members == nil {
		s.members = make(map[*Node]struct{})
	}
	s.members[n] = struct{}{}
	s.order = append(s.order, n)
	return true
}

// remove deletes n, keeping the order of the remaining nodes.
func (s *nodeSet) remove(n *Node) bool {
	if _, ok := s.members[n]; !ok {
		return false
	}
	delete(s.members, n)
	for i, m := range s.order {
		if m == n {
			copy(s.order[i:], s.order[i+1:])
			s.order[len(s.order)-1] = nil
			s.order = s.order[:len(s.order)-1]
			break
		}
	}
	return true
}

func (s *nodeSet) has(n *Node) bool {
	_, ok := s.members[n]
	return ok
}

func (s *nodeSet) at(i int) *Node {
	return s.order[i]
}

func (s *nodeSet) len() int {
	return len(s.order)
}

func (s *nodeSet) snapshot() []*Node {
	out := make([]*Node, len(s.order))
	copy(out, s.order)
	return out
}

func (s *nodeSet) clear() {
	clear(s.order)
	s.order = s.order[:0]
	clear(s.members)
}

// registry maps a signal id to the nodes currently subscribed to it.
// It never owns nodes: a node leaves every entry when it is cleaned, and an
// entry is deleted as soon as its last subscriber leaves.
type registry struct {
	entries map[uint64]*nodeSet
}

func newRegistry() registry {
	return registry{entries: make(map[uint64]*nodeSet)}
}

// subscribe records n as a subscriber of id. Reports whether n was added.
func (r *registry) subscribe(id uint64, n *Node) bool {
	set, ok := r.entries[id]
	if !ok {
		s := newNodeSet()
		set = &s
		r.entries[id] = set
	}
	return set.add(n)
}

func (r *registry) unsubscribe(id uint64, n *Node) {
	set, ok := r.entries[id]
	if !ok {
		return
	}
	set.remove(n)
	if set.len() == 0 {
		delete(r.entries, id)
	}
}

// subscribers returns a snapshot of the nodes subscribed to id, in
// subscription order.
func (r *registry) subscribers(id uint64) []*Node {
	set, ok := r.entries[id]
	if !ok {
		return nil
	}
	return set.snapshot()
}

func (r *registry) count(id uint64) int {
	set, ok := r.entries[id]
	if !ok {
		return 0
	}
	return set.len()
}

func (r *registry) len() int {
	return len(r.entries)
}
