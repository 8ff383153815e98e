package signal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/space/internal/errors"
)

// Runtime is the single-threaded reactive runtime.
//
// It holds the tracking pointer (the node currently executing), the
// subscription registry, the scheduler pending set and the host queues.
// The registry and the pending set are the only shared mutable structures;
// none of them are locked, so a Runtime must only be used from one goroutine.
type Runtime struct {
	id     string
	ctx    context.Context
	logger *slog.Logger
	now    func() time.Time
	report func(error)

	observers []Observer

	// current is the node currently executing. nil outside of any scope.
	current *Node

	// untracked keeps current as the owner while reads do not subscribe it.
	untracked bool

	// seq is the source of node and signal ids.
	seq uint64

	registry registry

	// pending is the deduplicating, insertion-ordered set of nodes awaiting
	// re-run. scheduled is true from the moment a flush is queued until
	// that flush finishes.
	pending      nodeSet
	scheduled    bool
	maxFlushRuns int

	microtasks []func()
	draining   bool
	idle       idleQueue

	nodesCreated uint64
	flushes      uint64
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for runtime diagnostics and the default
// unhandled-error reporter.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithClock overrides the time source used for idle deadlines and event
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(rt *Runtime) {
		if now != nil {
			rt.now = now
		}
	}
}

// WithErrorReporter sets the global reporter for computation errors that
// no CatchError handler claimed.
func WithErrorReporter(fn func(error)) Option {
	return func(rt *Runtime) {
		rt.report = fn
	}
}

// WithObserver adds an observer that receives runtime events.
func WithObserver(o Observer) Option {
	return func(rt *Runtime) {
		if o != nil {
			rt.observers = append(rt.observers, o)
		}
	}
}

// WithMaxFlushRuns caps the number of node re-runs in a single flush.
// Zero, the default, leaves flushes unbounded: a flush drains its pending
// set to a fixpoint, which can live-lock if computations keep creating new
// computations. When the cap trips, the rest of the pending set is dropped
// and ErrFlushLimit is reported.
func WithMaxFlushRuns(n int) Option {
	return func(rt *Runtime) {
		if n >= 0 {
			rt.maxFlushRuns = n
		}
	}
}

// WithContext sets the context passed to observers.
func WithContext(ctx context.Context) Option {
	return func(rt *Runtime) {
		if ctx != nil {
			rt.ctx = ctx
		}
	}
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		id:       uuid.NewString(),
		ctx:      context.Background(),
		logger:   slog.Default(),
		now:      time.Now,
		registry: newRegistry(),
		pending:  newNodeSet(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger = rt.logger.With("runtime_id", rt.id)
	if rt.report == nil {
		rt.report = rt.logUnhandled
	}
	return rt
}

// ID returns the unique identifier for this Runtime.
func (rt *Runtime) ID() string {
	return rt.id
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Owner returns the node currently executing, or nil.
func (rt *Runtime) Owner() *Node {
	return rt.current
}

// CurrentNode returns the node currently executing.
// It panics with a usage error when called outside of any scope.
func (rt *Runtime) CurrentNode() *Node {
	if rt.current == nil {
		panic(usageError("E005", "CurrentNode"))
	}
	return rt.current
}

// RegistrySize returns the number of signals that currently have at least
// one subscriber.
func (rt *Runtime) RegistrySize() int {
	return rt.registry.len()
}

// Subscribers returns the number of nodes subscribed to src.
func (rt *Runtime) Subscribers(src Source) int {
	return rt.registry.count(src.ID())
}

// Pending returns the number of nodes in the scheduler pending set.
func (rt *Runtime) Pending() int {
	return rt.pending.len()
}

// Scheduled reports whether a flush is queued or running.
func (rt *Runtime) Scheduled() bool {
	return rt.scheduled
}

// Stats is a point-in-time summary of runtime state.
type Stats struct {
	ID              string `json:"id"`
	RegistryEntries int    `json:"registry_entries"`
	Pending         int    `json:"pending"`
	Scheduled       bool   `json:"scheduled"`
	Microtasks      int    `json:"microtasks"`
	IdleTasks       int    `json:"idle_tasks"`
	NodesCreated    uint64 `json:"nodes_created"`
	Flushes         uint64 `json:"flushes"`
}

// Stats returns a snapshot of runtime counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		ID:              rt.id,
		RegistryEntries: rt.registry.len(),
		Pending:         rt.pending.len(),
		Scheduled:       rt.scheduled,
		Microtasks:      len(rt.microtasks),
		IdleTasks:       rt.idle.len(),
		NodesCreated:    rt.nodesCreated,
		Flushes:         rt.flushes,
	}
}

func (rt *Runtime) nextID() uint64 {
	rt.seq++
	return rt.seq
}

func (rt *Runtime) logUnhandled(err error) {
	rt.logger.Error("unhandled reactive error", "error", err, "code", errors.Code(err))
}

// Now returns the current time according to the runtime's clock.
func (rt *Runtime) Now() time.Time {
	return rt.now()
}
