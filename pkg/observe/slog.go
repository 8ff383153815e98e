package observe

import (
	"context"
	"log/slog"

	"github.com/vango-dev/space/pkg/signal"
)

// SlogObserver writes runtime events to a slog.Logger. The event type is the
// message. Unhandled errors are logged at error level, failed runs at warn
// level and everything else at Level.
type SlogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// SlogOption configures a SlogObserver.
type SlogOption func(*SlogObserver)

// WithLevel sets the level for routine events. Default: debug.
func WithLevel(level slog.Level) SlogOption {
	return func(o *SlogObserver) {
		o.level = level
	}
}

// NewSlog creates a SlogObserver. A nil logger uses slog.Default().
func NewSlog(logger *slog.Logger, opts ...SlogOption) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	o := &SlogObserver{logger: logger, level: slog.LevelDebug}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnEvent implements signal.Observer.
func (o *SlogObserver) OnEvent(ctx context.Context, e signal.Event) {
	level := o.level
	attrs := []slog.Attr{slog.String("runtime_id", e.RuntimeID)}

	switch e.Type {
	case signal.EventFlushStart:
		attrs = append(attrs, slog.Int("pending", e.Pending))
	case signal.EventFlushEnd:
		attrs = append(attrs,
			slog.Int("runs", e.Runs),
			slog.Duration("duration", e.Duration))
	case signal.EventNodeRun:
		attrs = append(attrs,
			slog.Uint64("node_id", e.NodeID),
			slog.String("kind", e.NodeKind.String()),
			slog.Duration("duration", e.Duration))
		if e.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", e.Err))
		}
	case signal.EventNodeDisposed:
		attrs = append(attrs,
			slog.Uint64("node_id", e.NodeID),
			slog.String("kind", e.NodeKind.String()))
	case signal.EventUnhandledError:
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", e.Err))
		attrs = append(attrs, slog.String("code", errorCode(e.Err)))
		if e.NodeID != 0 {
			attrs = append(attrs, slog.Uint64("node_id", e.NodeID))
		}
	}

	o.logger.LogAttrs(ctx, level, string(e.Type), attrs...)
}
