package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/space/pkg/signal"
)

// Default tracer name for runtime spans.
const defaultTracerName = "space/signal"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "space/signal").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// SkipInitialRuns drops spans for runs that happen outside a flush,
	// such as the first run of a new effect.
	SkipInitialRuns bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithSkipInitialRuns drops spans for runs outside a flush.
func WithSkipInitialRuns(skip bool) TracingOption {
	return func(c *TracingConfig) {
		c.SkipInitialRuns = skip
	}
}

// TracingObserver turns runtime events into OpenTelemetry spans.
//
// Each flush becomes a "signal.flush" span. Each computation run becomes a
// "signal.run" span, parented to the flush it ran in. Failed runs and
// unhandled errors set the span status to Error.
type TracingObserver struct {
	tracer trace.Tracer
	config TracingConfig

	mu      sync.Mutex
	flushes map[string]flushSpan
}

type flushSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewTracing creates a TracingObserver.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it before creating runtimes:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func NewTracing(opts ...TracingOption) *TracingObserver {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &TracingObserver{
		tracer:  tp.Tracer(config.TracerName),
		config:  config,
		flushes: make(map[string]flushSpan),
	}
}

// OnEvent implements signal.Observer.
func (t *TracingObserver) OnEvent(ctx context.Context, e signal.Event) {
	runtimeAttr := attribute.String("signal.runtime_id", e.RuntimeID)

	switch e.Type {
	case signal.EventFlushStart:
		spanCtx, span := t.tracer.Start(ctx, "signal.flush",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				runtimeAttr,
				attribute.Int("signal.pending", e.Pending),
			),
		)
		t.mu.Lock()
		t.flushes[e.RuntimeID] = flushSpan{ctx: spanCtx, span: span}
		t.mu.Unlock()

	case signal.EventFlushEnd:
		t.mu.Lock()
		fs, ok := t.flushes[e.RuntimeID]
		delete(t.flushes, e.RuntimeID)
		t.mu.Unlock()
		if !ok {
			return
		}
		fs.span.SetAttributes(attribute.Int("signal.runs", e.Runs))
		fs.span.End(trace.WithTimestamp(e.Time))

	case signal.EventNodeRun:
		parent, inFlush := t.flushContext(e.RuntimeID)
		if !inFlush {
			if t.config.SkipInitialRuns {
				return
			}
			parent = ctx
		}
		_, span := t.tracer.Start(parent, "signal.run",
			trace.WithTimestamp(e.Time.Add(-e.Duration)),
			trace.WithAttributes(
				runtimeAttr,
				attribute.Int64("signal.node_id", int64(e.NodeID)),
				attribute.String("signal.node_kind", e.NodeKind.String()),
			),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(e.Time))

	case signal.EventUnhandledError:
		if e.Err == nil {
			return
		}
		if parent, ok := t.flushContext(e.RuntimeID); ok {
			span := trace.SpanFromContext(parent)
			span.RecordError(e.Err, trace.WithAttributes(
				attribute.String("signal.error_code", errorCode(e.Err)),
			))
			span.SetStatus(codes.Error, e.Err.Error())
			return
		}
		_, span := t.tracer.Start(ctx, "signal.unhandled_error",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				runtimeAttr,
				attribute.String("signal.error_code", errorCode(e.Err)),
			),
		)
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
		span.End(trace.WithTimestamp(e.Time))
	}
}

func (t *TracingObserver) flushContext(runtimeID string) (context.Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fs, ok := t.flushes[runtimeID]
	return fs.ctx, ok
}
