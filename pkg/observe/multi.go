package observe

import (
	"context"

	"github.com/vango-dev/space/pkg/signal"
)

// MultiObserver forwards events to several observers in order.
type MultiObserver struct {
	observers []signal.Observer
}

// Multi combines observers. Nil observers are dropped.
func Multi(observers ...signal.Observer) *MultiObserver {
	filtered := make([]signal.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return &MultiObserver{observers: filtered}
}

// OnEvent implements signal.Observer.
func (m *MultiObserver) OnEvent(ctx context.Context, e signal.Event) {
	for _, o := range m.observers {
		o.OnEvent(ctx, e)
	}
}

// Nop discards all events.
type Nop struct{}

// OnEvent implements signal.Observer.
func (Nop) OnEvent(context.Context, signal.Event) {}
