package signal

// Provide stores value under key on the current node. Descendants created
// under this node see it through Inject until the node is cleaned.
// It panics with a usage error when called outside of any scope.
func (rt *Runtime) Provide(key, value any) {
	n := rt.current
	if n == nil {
		panic(usageError("E001", "Provide"))
	}
	if n.context == nil {
		n.context = make(map[any]any)
	}
	n.context[key] = value
}

// Lookup walks from the current node up through its ancestors and returns
// the value of the first context that defines key.
func (rt *Runtime) Lookup(key any) (any, bool) {
	return lookup(rt.current, key)
}

// Inject returns the value provided for key by the nearest ancestor, or
// fallback when no ancestor provided it, the provided value is nil, or it
// is not a T.
// It panics with a usage error when called outside of any scope.
func Inject[T any](rt *Runtime, key any, fallback T) T {
	if rt.current == nil {
		panic(usageError("E002", "Inject"))
	}
	v, ok := lookup(rt.current, key)
	if !ok || v == nil {
		return fallback
	}
	t, ok := v.(T)
	if !ok {
		return fallback
	}
	return t
}

func lookup(n *Node, key any) (any, bool) {
	for ; n != nil; n = n.parent {
		if n.context == nil {
			continue
		}
		if v, ok := n.context[key]; ok {
			return v, true
		}
	}
	return nil, false
}
