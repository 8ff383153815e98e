package signal

// Resolvable is anything that holds a value which can be read uniformly,
// such as a Signal or a Memo. Templating code uses it to accept either
// plain values or reactive ones.
type Resolvable interface {
	Resolve() any
}

// IsResolvable reports whether x is Resolvable.
func IsResolvable(x any) bool {
	_, ok := x.(Resolvable)
	return ok
}

// Resolve returns x's value if x is Resolvable, and x itself otherwise.
// Resolving a signal inside a computation subscribes it.
func Resolve(x any) any {
	if r, ok := x.(Resolvable); ok {
		return r.Resolve()
	}
	return x
}

// ResolveAs resolves x and converts the result to T, returning the zero T
// when the value is not a T.
func ResolveAs[T any](x any) T {
	v, _ := Resolve(x).(T)
	return v
}
