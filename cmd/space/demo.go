package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/space/internal/errors"
	"github.com/vango-dev/space/pkg/signal"
)

// scenario runs against a fresh runtime and writes its results to w.
type scenario struct {
	name  string
	short string
	run   func(w io.Writer, logger *slog.Logger)
}

var scenarios = []scenario{
	{"counter", "Two writes in one turn produce a single effect run", demoCounter},
	{"parity", "A memo only notifies readers when its value changes", demoParity},
	{"deferred", "A deferred memo commits its value when the host idles", demoDeferred},
	{"errors", "Errors go to the nearest boundary or to the reporter", demoErrors},
}

func demoCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "demo [scenario...]",
		Short: "Run reference scenarios",
		Long: `Run reference scenarios against a fresh runtime and print what
the computations observed.

Scenarios:
` + scenarioList() + `
Examples:
  space demo
  space demo counter
  space demo --verbose errors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return runDemos(cmd.OutOrStdout(), logger, args)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log runtime activity to stderr")

	return cmd
}

func scenarioList() string {
	var b strings.Builder
	for _, s := range scenarios {
		fmt.Fprintf(&b, "  %-10s %s\n", s.name, s.short)
	}
	return b.String()
}

func runDemos(w io.Writer, logger *slog.Logger, names []string) error {
	selected := scenarios
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			s, ok := findScenario(name)
			if !ok {
				return errors.New("E030").
					WithDetail(fmt.Sprintf("Unknown scenario %q. Available: %s", name, scenarioNames()))
			}
			selected = append(selected, s)
		}
	}

	for _, s := range selected {
		fmt.Fprintf(w, "== %s\n", s.name)
		s.run(w, logger)
	}
	return nil
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func scenarioNames() string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.name
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func demoCounter(w io.Writer, logger *slog.Logger) {
	rt := signal.New(signal.WithLogger(logger))
	var log []int
	var count *signal.Signal[int]
	signal.Root(rt, func(func()) struct{} {
		count = signal.NewSignal(rt, 0)
		signal.CreateEffect(rt, func(struct{}) struct{} {
			log = append(log, count.Get())
			return struct{}{}
		}, struct{}{})
		return struct{}{}
	})
	rt.Drain()

	count.Set(1)
	count.Set(2)
	rt.Drain()

	fmt.Fprintf(w, "effect saw %v\n", log)
}

func demoParity(w io.Writer, logger *slog.Logger) {
	rt := signal.New(signal.WithLogger(logger))
	x := signal.NewSignal(rt, 0)
	memoRuns := 0
	var seen []int

	signal.Root(rt, func(func()) struct{} {
		parity := signal.CreateMemo(rt, func() int {
			memoRuns++
			return x.Get() % 2
		}, 0)
		signal.CreateEffect(rt, func(struct{}) struct{} {
			seen = append(seen, parity.Get())
			return struct{}{}
		}, struct{}{})
		return struct{}{}
	})
	rt.Drain()

	for _, v := range []int{2, 1, 3, 4} {
		x.Set(v)
		rt.Drain()
	}

	fmt.Fprintf(w, "memo ran %d times, reader saw %v\n", memoRuns, seen)
}

func demoDeferred(w io.Writer, logger *slog.Logger) {
	rt := signal.New(signal.WithLogger(logger))
	query := signal.NewSignal(rt, "")
	var seen []string

	signal.Root(rt, func(func()) struct{} {
		upper := signal.CreateDeferred(rt, func() string {
			return strings.ToUpper(query.Get())
		}, "", 0)
		signal.CreateEffect(rt, func(struct{}) struct{} {
			seen = append(seen, fmt.Sprintf("%q", upper.Get()))
			return struct{}{}
		}, struct{}{})
		return struct{}{}
	})
	rt.Drain()

	for _, q := range []string{"s", "sp", "spa"} {
		query.Set(q)
		rt.Drain()
	}
	fmt.Fprintf(w, "idle tasks pending: %d\n", rt.IdlePending())

	rt.Settle()
	fmt.Fprintf(w, "reader saw %s\n", strings.Join(seen, " "))
}

func demoErrors(w io.Writer, logger *slog.Logger) {
	var handled, unhandled []error
	rt := signal.New(
		signal.WithLogger(logger),
		signal.WithErrorReporter(func(err error) { unhandled = append(unhandled, err) }),
	)
	fail := signal.NewSignal(rt, false)

	siblingRuns := 0
	signal.Root(rt, func(func()) struct{} {
		signal.Root(rt, func(func()) struct{} {
			rt.CatchError(func(err error) { handled = append(handled, err) })
			signal.CreateEffect(rt, func(struct{}) struct{} {
				if fail.Get() {
					panic("guarded failure")
				}
				return struct{}{}
			}, struct{}{})
			return struct{}{}
		})

		signal.CreateEffectE(rt, func(struct{}) (struct{}, error) {
			if fail.Get() {
				return struct{}{}, fmt.Errorf("unguarded failure")
			}
			return struct{}{}, nil
		}, struct{}{})

		signal.CreateEffect(rt, func(struct{}) struct{} {
			fail.Get()
			siblingRuns++
			return struct{}{}
		}, struct{}{})
		return struct{}{}
	})
	rt.Drain()

	fail.Set(true)
	rt.Drain()

	for _, err := range handled {
		fmt.Fprintf(w, "boundary caught: %v\n", err)
	}
	for _, err := range unhandled {
		fmt.Fprintf(w, "reported: %v\n", err)
	}
	fmt.Fprintf(w, "sibling ran %d times\n", siblingRuns)
}
