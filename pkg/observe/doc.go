// Package observe provides signal.Observer implementations for metrics,
// tracing and logging.
//
// Observers are attached when the runtime is created:
//
//	rt := signal.New(
//	    signal.WithObserver(observe.Multi(
//	        observe.NewPrometheus(observe.WithNamespace("myapp")),
//	        observe.NewTracing(),
//	        observe.NewSlog(logger),
//	    )),
//	)
//
// All observers are called synchronously on the runtime's goroutine.
package observe
