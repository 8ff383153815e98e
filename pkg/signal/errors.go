package signal

import (
	stderrors "errors"
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/space/internal/errors"
)

var (
	// ErrNoOwner is wrapped by every usage error raised when a primitive
	// that needs an enclosing scope is called outside of one.
	ErrNoOwner = stderrors.New("signal: called without an owner")

	// ErrFlushLimit is reported when a flush exceeds WithMaxFlushRuns.
	ErrFlushLimit = stderrors.New("signal: flush run limit exceeded")
)

// PanicError is a panic recovered from a computation, a scope setup
// function or a cleanup.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("signal: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recovered converts a recovered panic value into an error. Usage errors
// are re-raised: they are contract violations, not computation errors.
func recovered(r any) error {
	if errors.IsUsage(r) {
		panic(r)
	}
	return panicToError(r)
}

func panicToError(r any) error {
	if errors.IsUsage(r) {
		return r.(error)
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}

func usageError(code, op string) *errors.SpaceError {
	return errors.New(code).WithOp(op).Wrap(ErrNoOwner)
}

// errorKey is the reserved context key holding error handlers.
type errorKey struct{}

// CatchError registers handler on the current node. When a computation at
// or below this node fails, every handler registered on the nearest node
// that has any is called, in registration order.
// It panics with a usage error when called outside of any scope.
func (rt *Runtime) CatchError(handler func(error)) {
	n := rt.current
	if n == nil {
		panic(usageError("E004", "CatchError"))
	}
	if n.context == nil {
		n.context = make(map[any]any)
	}
	handlers, _ := n.context[errorKey{}].([]func(error))
	n.context[errorKey{}] = append(handlers, handler)
}

// handleError routes err to the handlers found by walking up from n. With
// no handlers anywhere up the chain the error goes to the global reporter.
func (rt *Runtime) handleError(n *Node, err error) {
	v, ok := lookup(n, errorKey{})
	handlers, _ := v.([]func(error))
	if !ok || len(handlers) == 0 {
		rt.reportUnhandled(n, err)
		return
	}
	for _, h := range handlers {
		rt.callHandler(n, h, err)
	}
}

func (rt *Runtime) callHandler(n *Node, h func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.reportUnhandled(n, recovered(r))
		}
	}()
	h(err)
}

func (rt *Runtime) reportUnhandled(n *Node, err error) {
	e := Event{Type: EventUnhandledError, Err: err}
	if n != nil {
		e.NodeID = n.id
		e.NodeKind = n.kind
	}
	rt.emit(e)
	if rt.report != nil {
		rt.report(err)
	}
}
