package observe

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/space/internal/errors"
	"github.com/vango-dev/space/pkg/signal"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "space").
	Namespace string

	// Subsystem is the metrics subsystem (default: "signal").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush and run durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "space",
		Subsystem: "signal",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	flushesTotal    prometheus.Counter
	flushDuration   prometheus.Histogram
	flushRuns       prometheus.Histogram
	pendingNodes    prometheus.Gauge
	nodeRuns        *prometheus.CounterVec
	nodeRunDuration *prometheus.HistogramVec
	nodesDisposed   *prometheus.CounterVec
	unhandledErrors *prometheus.CounterVec
}

// Metrics registered on the default registerer are created once per
// process; registering the same names twice would panic.
var (
	defaultMetrics     *metrics
	defaultMetricsOnce sync.Once
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of scheduler flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushRuns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_runs",
			Help:        "Number of node re-runs per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),

		pendingNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_nodes",
			Help:        "Nodes pending at the start of the current flush",
			ConstLabels: config.ConstLabels,
		}),

		nodeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "node_runs_total",
			Help:        "Total number of computation runs",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		nodeRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "node_run_duration_seconds",
			Help:        "Computation run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		nodesDisposed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_disposed_total",
			Help:        "Total number of disposed nodes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		unhandledErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unhandled_errors_total",
			Help:        "Total number of errors no handler claimed",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// PrometheusObserver records runtime events as Prometheus metrics.
type PrometheusObserver struct {
	m *metrics
}

// NewPrometheus creates a PrometheusObserver.
//
// Metrics:
//   - space_signal_flushes_total: counter
//   - space_signal_flush_duration_seconds: histogram
//   - space_signal_flush_runs: histogram of re-runs per flush
//   - space_signal_pending_nodes: gauge
//   - space_signal_node_runs_total{kind,status}: counter
//   - space_signal_node_run_duration_seconds{kind}: histogram
//   - space_signal_nodes_disposed_total{kind}: counter
//   - space_signal_unhandled_errors_total{code}: counter
//
// With the default registerer the metrics are shared by every observer in
// the process and later options are ignored.
func NewPrometheus(opts ...MetricsOption) *PrometheusObserver {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Registry == prometheus.DefaultRegisterer {
		defaultMetricsOnce.Do(func() {
			defaultMetrics = initMetrics(config)
		})
		return &PrometheusObserver{m: defaultMetrics}
	}
	return &PrometheusObserver{m: initMetrics(config)}
}

// OnEvent implements signal.Observer.
func (p *PrometheusObserver) OnEvent(_ context.Context, e signal.Event) {
	switch e.Type {
	case signal.EventFlushStart:
		p.m.pendingNodes.Set(float64(e.Pending))

	case signal.EventFlushEnd:
		p.m.flushesTotal.Inc()
		p.m.flushDuration.Observe(e.Duration.Seconds())
		p.m.flushRuns.Observe(float64(e.Runs))
		p.m.pendingNodes.Set(0)

	case signal.EventNodeRun:
		kind := e.NodeKind.String()
		status := "ok"
		if e.Err != nil {
			status = "error"
		}
		p.m.nodeRuns.WithLabelValues(kind, status).Inc()
		p.m.nodeRunDuration.WithLabelValues(kind).Observe(e.Duration.Seconds())

	case signal.EventNodeDisposed:
		p.m.nodesDisposed.WithLabelValues(e.NodeKind.String()).Inc()

	case signal.EventUnhandledError:
		p.m.unhandledErrors.WithLabelValues(errorCode(e.Err)).Inc()
	}
}

// errorCode returns the registered code for err. Recovered panics map to
// E006; errors returned by user code have no code.
func errorCode(err error) string {
	if code := errors.Code(err); code != "" {
		return code
	}
	var pe *signal.PanicError
	if stderrors.As(err, &pe) {
		return "E006"
	}
	return "none"
}
