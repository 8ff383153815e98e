// Package eventloop drives a signal.Runtime from a single goroutine.
//
// A Runtime is not safe for concurrent use. The Loop owns one and accepts
// work from any goroutine through Dispatch and Do; every dispatched
// function runs on the loop goroutine, followed by a microtask drain. When
// the inbox is empty the loop runs idle tasks.
//
//	loop := eventloop.New()
//	go loop.Run(ctx)
//
//	loop.Dispatch(func(rt *signal.Runtime) {
//	    count.Set(count.Peek() + 1)
//	})
package eventloop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/space/internal/errors"
	"github.com/vango-dev/space/pkg/signal"
)

// DefaultQueueSize is the inbox capacity used when WithQueueSize is not set.
const DefaultQueueSize = 256

var (
	// ErrQueueFull is returned by Dispatch when the inbox is full.
	ErrQueueFull error = errors.New("E011").WithOp("Dispatch")

	// ErrClosed is returned when work is submitted to a stopped loop.
	ErrClosed error = errors.New("E012")

	// ErrRunning is returned by Run when the loop is already being run.
	ErrRunning error = errors.New("E013").WithOp("Run")
)

// Option configures a Loop.
type Option func(*options)

type options struct {
	queueSize  int
	logger     *slog.Logger
	rtOpts     []signal.Option
	runtimeSet *signal.Runtime
}

// WithQueueSize sets the inbox capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the loop's logger. It is also passed to the runtime
// unless WithRuntimeOptions overrides it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRuntimeOptions passes options to the runtime the loop creates.
func WithRuntimeOptions(opts ...signal.Option) Option {
	return func(o *options) {
		o.rtOpts = append(o.rtOpts, opts...)
	}
}

// WithRuntime makes the loop drive an existing runtime instead of creating
// one. The caller must not use rt from any other goroutine afterwards.
func WithRuntime(rt *signal.Runtime) Option {
	return func(o *options) {
		o.runtimeSet = rt
	}
}

// Loop serializes access to a Runtime.
type Loop struct {
	rt     *signal.Runtime
	logger *slog.Logger

	inbox chan func()
	done  chan struct{}

	closed    atomic.Bool
	running   atomic.Bool
	closeOnce sync.Once

	dispatched atomic.Uint64
	panics     atomic.Uint64
}

// New creates a Loop. The loop does nothing until Run is called.
func New(opts ...Option) *Loop {
	o := options{
		queueSize: DefaultQueueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	rt := o.runtimeSet
	if rt == nil {
		rtOpts := append([]signal.Option{signal.WithLogger(o.logger)}, o.rtOpts...)
		rt = signal.New(rtOpts...)
	}

	return &Loop{
		rt:     rt,
		logger: o.logger.With("component", "eventloop", "runtime_id", rt.ID()),
		inbox:  make(chan func(), o.queueSize),
		done:   make(chan struct{}),
	}
}

// Runtime returns the runtime driven by the loop. It must only be used
// from inside dispatched functions, or before Run is called.
func (l *Loop) Runtime() *signal.Runtime {
	return l.rt
}

// Dispatch queues fn to run on the loop goroutine. It never blocks: when
// the inbox is full the function is discarded and ErrQueueFull returned.
func (l *Loop) Dispatch(fn func(rt *signal.Runtime)) error {
	if l.closed.Load() {
		return ErrClosed
	}
	select {
	case l.inbox <- func() { fn(l.rt) }:
		return nil
	case <-l.done:
		return ErrClosed
	default:
		l.logger.Warn("dispatch queue full, discarding callback")
		return ErrQueueFull
	}
}

// Do runs fn on the loop goroutine and waits for it, and for the microtask
// drain that follows it, to complete. It returns fn's error, ctx's error if
// ctx ends first, or ErrClosed if the loop stops first. A panic in fn is
// returned as a *signal.PanicError.
func (l *Loop) Do(ctx context.Context, fn func(rt *signal.Runtime) error) error {
	if l.closed.Load() {
		return ErrClosed
	}

	result := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &signal.PanicError{Value: r, Stack: debug.Stack()}
			}
			l.rt.Drain()
			result <- err
		}()
		err = fn(l.rt)
	}

	select {
	case l.inbox <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Run processes dispatched functions until ctx is cancelled or Close is
// called. It must be called from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	l.logger.Debug("event loop started")
	defer l.logger.Debug("event loop stopped")

	// Work queued before Run.
	l.rt.Drain()

	for {
		if l.rt.IdlePending() > 0 {
			select {
			case fn := <-l.inbox:
				l.execute(fn)
				continue
			case <-ctx.Done():
				l.Close()
				return ctx.Err()
			case <-l.done:
				return nil
			default:
				l.rt.RunIdle()
				continue
			}
		}

		select {
		case fn := <-l.inbox:
			l.execute(fn)
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// execute runs a dispatched function, then drains microtasks and runs any
// idle task whose timeout has elapsed.
func (l *Loop) execute(fn func()) {
	l.dispatched.Add(1)
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
		l.rt.Drain()
		l.rt.RunExpiredIdle(l.rt.Now())
	}()
	fn()
}

// Close stops the loop. Pending dispatched functions are discarded.
// Close is safe to call more than once and from any goroutine.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done returns a channel that is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stats are loop counters, safe to read from any goroutine.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Panics     uint64 `json:"panics"`
	Queued     int    `json:"queued"`
	QueueSize  int    `json:"queue_size"`
	Running    bool   `json:"running"`
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Dispatched: l.dispatched.Load(),
		Panics:     l.panics.Load(),
		Queued:     len(l.inbox),
		QueueSize:  cap(l.inbox),
		Running:    l.running.Load(),
	}
}
