package signal

import (
	"io"
	"log/slog"
	"testing"
)

// errSink collects errors passed to the runtime's global reporter.
type errSink struct {
	errs []error
}

func (s *errSink) report(err error) {
	s.errs = append(s.errs, err)
}

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *errSink) {
	t.Helper()
	sink := &errSink{}
	base := []Option{
		WithLogger(discardLogger()),
		WithErrorReporter(sink.report),
	}
	return New(append(base, opts...)...), sink
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// record creates an effect that appends read() to log on every run.
func record[T any](rt *Runtime, log *[]T, read func() T) *Node {
	return CreateEffect(rt, func(struct{}) struct{} {
		*log = append(*log, read())
		return struct{}{}
	}, struct{}{})
}

// counter creates an effect that counts its runs and calls body on each.
func counter(rt *Runtime, runs *int, body func()) *Node {
	return CreateEffect(rt, func(struct{}) struct{} {
		*runs++
		if body != nil {
			body()
		}
		return struct{}{}
	}, struct{}{})
}

func mustPanic(t *testing.T, fn func()) (r any) {
	t.Helper()
	defer func() {
		r = recover()
		if r == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
	return nil
}
