package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/space/internal/errors"
	"github.com/vango-dev/space/pkg/signal"
)

const (
	// DefaultInspectAddr is the default inspector listen address.
	DefaultInspectAddr = "127.0.0.1:6060"

	// DefaultQueueSize is the default event loop inbox capacity.
	DefaultQueueSize = 256

	// DefaultIdleTimeout is the default timeout for deferred memos.
	DefaultIdleTimeout = 50 * time.Millisecond

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "space/signal"
)

// FileNames are the configuration file names Load looks for, in order.
var FileNames = []string{"space.json", "space.yaml", "space.yml"}

// Environment variable names.
const (
	EnvLogLevel     = "SPACE_LOG_LEVEL"
	EnvInspectAddr  = "SPACE_INSPECT_ADDR"
	EnvMaxFlushRuns = "SPACE_MAX_FLUSH_RUNS"
)

// Config is the complete configuration.
type Config struct {
	// Log contains logging configuration.
	Log LogConfig `json:"log" yaml:"log"`

	// Scheduler contains runtime scheduler configuration.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// Inspect contains debug server configuration.
	Inspect InspectConfig `json:"inspect" yaml:"inspect"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// SchedulerConfig contains runtime and event loop settings.
type SchedulerConfig struct {
	// MaxFlushRuns caps node re-runs per flush. 0 means unbounded.
	MaxFlushRuns int `json:"maxFlushRuns,omitempty" yaml:"maxFlushRuns,omitempty"`

	// IdleTimeout is the default timeout for deferred memos (e.g. "50ms").
	IdleTimeout string `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`

	// QueueSize is the event loop inbox capacity.
	QueueSize int `json:"queueSize,omitempty" yaml:"queueSize,omitempty"`
}

// InspectConfig contains debug server settings.
type InspectConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`

	// Exporter is stdout or none.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
}

// New returns a configuration with defaults applied.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scheduler: SchedulerConfig{
			IdleTimeout: DefaultIdleTimeout.String(),
			QueueSize:   DefaultQueueSize,
		},
		Inspect: InspectConfig{
			Addr: DefaultInspectAddr,
		},
		Metrics: MetricsConfig{
			Namespace: "space",
			Subsystem: "signal",
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
			Exporter:   "stdout",
		},
	}
}

// Load loads the first configuration file found in dir. With no file
// present it returns the defaults. Environment overrides are applied in
// both cases.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	cfg := New()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a configuration file. The format is chosen by extension:
// .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E021").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E020").Wrap(err)
	}

	cfg, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, err
	}
	cfg.configPath = path

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Format is a configuration file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes data over the defaults and validates the result. It does
// not apply environment overrides.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := New()

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E020").
			WithDetail("Failed to parse " + string(format) + " configuration: " + err.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields a file set to their zero value.
func (c *Config) applyDefaults() {
	d := New()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Scheduler.IdleTimeout == "" {
		c.Scheduler.IdleTimeout = d.Scheduler.IdleTimeout
	}
	if c.Scheduler.QueueSize == 0 {
		c.Scheduler.QueueSize = d.Scheduler.QueueSize
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = d.Inspect.Addr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = d.Tracing.Exporter
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvInspectAddr); v != "" {
		c.Inspect.Addr = v
		c.Inspect.Enabled = true
	}
	if v := os.Getenv(EnvMaxFlushRuns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E020").
				WithDetail(EnvMaxFlushRuns + " must be an integer, got " + strconv.Quote(v))
		}
		c.Scheduler.MaxFlushRuns = n
	}
	return c.Validate()
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E020").
			WithDetail("log.level must be one of debug, info, warn, error; got " + strconv.Quote(c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E020").
			WithDetail("log.format must be text or json; got " + strconv.Quote(c.Log.Format))
	}
	if c.Scheduler.MaxFlushRuns < 0 {
		return errors.New("E020").
			WithDetail("scheduler.maxFlushRuns must not be negative")
	}
	if c.Scheduler.QueueSize < 0 {
		return errors.New("E020").
			WithDetail("scheduler.queueSize must not be negative")
	}
	if d, err := time.ParseDuration(c.Scheduler.IdleTimeout); err != nil || d < 0 {
		return errors.New("E020").
			WithDetail("scheduler.idleTimeout must be a non-negative duration; got " + strconv.Quote(c.Scheduler.IdleTimeout))
	}
	if c.Tracing.Exporter != "stdout" && c.Tracing.Exporter != "none" {
		return errors.New("E020").
			WithDetail("tracing.exporter must be stdout or none; got " + strconv.Quote(c.Tracing.Exporter))
	}
	return nil
}

// Path returns the path the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// IdleTimeout returns the parsed scheduler.idleTimeout.
func (c *Config) IdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.IdleTimeout)
	if err != nil {
		return DefaultIdleTimeout
	}
	return d
}

// LogLevel returns the parsed log.level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLogger builds a logger writing to w with the configured level and
// format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RuntimeOptions maps the configuration onto runtime options.
func (c *Config) RuntimeOptions(logger *slog.Logger) []signal.Option {
	opts := []signal.Option{signal.WithMaxFlushRuns(c.Scheduler.MaxFlushRuns)}
	if logger != nil {
		opts = append(opts, signal.WithLogger(logger))
	}
	return opts
}

// Marshal encodes the configuration in the given format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", "  ")
}
