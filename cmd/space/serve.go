package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/space/internal/config"
	"github.com/vango-dev/space/pkg/eventloop"
	"github.com/vango-dev/space/pkg/inspect"
	"github.com/vango-dev/space/pkg/observe"
	"github.com/vango-dev/space/pkg/signal"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a live runtime with the inspector",
		Long: `Run an event loop driving a ticking counter, with Prometheus
metrics, optional tracing and the inspector HTTP server.

Endpoints:
  /healthz          liveness
  /debug/stats      runtime and loop statistics
  /debug/tree       ownership tree of tracked roots
  /debug/events     websocket stream of runtime events
  /metrics          Prometheus metrics

Examples:
  space serve
  space serve --addr=:6060 --interval=500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			applyServeFlags(cfg, addr)

			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Inspector listen address; enables the inspector (default from config)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Counter tick interval")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	logger := cfg.NewLogger(os.Stderr)

	tp, err := newTracerProvider(cfg.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx, tp); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	srv := inspect.New(nil, inspect.WithLogger(logger))
	defer srv.Close()

	observers := []signal.Observer{
		observe.NewPrometheus(
			observe.WithNamespace(cfg.Metrics.Namespace),
			observe.WithSubsystem(cfg.Metrics.Subsystem),
		),
		observe.NewSlog(logger),
		srv,
	}
	if tp != nil {
		observers = append(observers, observe.NewTracing(
			observe.WithTracerName(cfg.Tracing.TracerName),
			observe.WithTracerProvider(tracerProvider(tp)),
		))
	}

	rtOpts := append(cfg.RuntimeOptions(logger), signal.WithObserver(observe.Multi(observers...)))
	loop := eventloop.New(
		eventloop.WithLogger(logger),
		eventloop.WithQueueSize(cfg.Scheduler.QueueSize),
		eventloop.WithRuntimeOptions(rtOpts...),
	)
	srv.SetLoop(loop)

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	var count *signal.Signal[int]
	err = loop.Do(ctx, func(rt *signal.Runtime) error {
		count = setupCounter(rt, srv, cfg.IdleTimeout(), logger)
		return nil
	})
	if err != nil {
		return err
	}

	go tick(ctx, loop, interval, func() { count.Update(func(n int) int { return n + 1 }) })

	success("Runtime %s running", loop.Runtime().ID())
	if cfg.Inspect.Enabled {
		info("Inspector: http://%s", cfg.Inspect.Addr)
	} else {
		info("Inspector disabled (pass --addr or set inspect.enabled)")
	}
	info("Press Ctrl+C to stop")

	if err := serveInspector(ctx, cfg.Inspect, srv); err != nil {
		return err
	}
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyServeFlags applies command-line overrides. An explicit address
// enables the inspector.
func applyServeFlags(cfg *config.Config, addr string) {
	if addr != "" {
		cfg.Inspect.Addr = addr
		cfg.Inspect.Enabled = true
	}
}

// serveInspector serves srv until ctx is done when the inspector is
// enabled, and otherwise just waits for ctx.
func serveInspector(ctx context.Context, cfg config.InspectConfig, srv *inspect.Server) error {
	if !cfg.Enabled {
		<-ctx.Done()
		return nil
	}
	return srv.ListenAndServe(ctx, cfg.Addr)
}

// setupCounter builds the demo graph under a tracked root: a counter, its
// parity and a deferred label that settles when the loop idles.
func setupCounter(rt *signal.Runtime, srv *inspect.Server, idle time.Duration, logger *slog.Logger) *signal.Signal[int] {
	return signal.Root(rt, func(func()) *signal.Signal[int] {
		srv.Track("counter", rt.CurrentNode())

		count := signal.NewSignal(rt, 0)
		parity := signal.CreateMemo(rt, func() string {
			if count.Get()%2 == 0 {
				return "even"
			}
			return "odd"
		}, "")
		label := signal.CreateDeferred(rt, func() string {
			return fmt.Sprintf("count=%d", count.Get())
		}, "", idle)

		signal.CreateEffect(rt, func(prev string) string {
			p := parity.Get()
			if p != prev {
				logger.Info("parity changed", "parity", p)
			}
			return p
		}, "")
		signal.CreateEffect(rt, func(struct{}) struct{} {
			logger.Debug("label", "value", label.Get())
			return struct{}{}
		}, struct{}{})

		return count
	})
}

// tick dispatches fn every interval until ctx is done.
func tick(ctx context.Context, loop *eventloop.Loop, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := loop.Dispatch(func(*signal.Runtime) { fn() }); err != nil {
				return
			}
		}
	}
}
