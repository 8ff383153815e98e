package signal

import (
	"context"
	"time"
)

// EventType identifies the kind of runtime event.
type EventType string

const (
	EventFlushStart     EventType = "flush.start"
	EventFlushEnd       EventType = "flush.end"
	EventNodeRun        EventType = "node.run"
	EventNodeDisposed   EventType = "node.disposed"
	EventUnhandledError EventType = "error.unhandled"
)

// Event describes something the runtime did. Only the fields relevant to
// the event type are set.
type Event struct {
	Type      EventType
	Time      time.Time
	RuntimeID string
	NodeID    uint64
	NodeKind  Kind

	// Duration is set on flush.end and node.run.
	Duration time.Duration

	// Pending is the pending-set size at flush.start.
	Pending int

	// Runs is the number of node re-runs at flush.end.
	Runs int

	// Err is set on node.run when the run failed and on error.unhandled.
	Err error
}

// Observer receives runtime events. Observers are called synchronously on
// the runtime's goroutine and must not call back into the runtime.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

func (rt *Runtime) emit(e Event) {
	if len(rt.observers) == 0 {
		return
	}
	e.Time = rt.now()
	e.RuntimeID = rt.id
	for _, o := range rt.observers {
		o.OnEvent(rt.ctx, e)
	}
}
