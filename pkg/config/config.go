// Package config implements the ambient configuration surface of §2 item
// 10: compiler-wide options loaded from YAML, checked against an embedded
// CUE schema, then struct-tag validated, with an optional fsnotify-driven
// reload for long-running hosts of the compiler (e.g. a future server
// wrapping cmd/frostc). Grounded on the teacher's pkg/config (cue_parser.go's
// CUE-then-validator pipeline) and pkg/policy/loader.go's fsnotify watch.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/frostlang/frost/pkg/scheduler"
	"github.com/frostlang/frost/pkg/telemetry"
)

// Config is the top-level compiler configuration handed to
// compiler.Compile (§6): the scheduler's iteration cap plus the
// telemetry stack's own logging/metrics/tracing toggles.
type Config struct {
	// MaxIterations bounds the scheduler's fixpoint loop (§4.4).
	MaxIterations int `yaml:"max_iterations" validate:"required,gt=0"`

	// LogLevel sets the telemetry logger's minimum level.
	LogLevel string `yaml:"log_level" validate:"required,oneof=trace debug info warn error fatal"`

	// LogFormat selects console or json logging.
	LogFormat string `yaml:"log_format" validate:"required,oneof=console json"`

	// MetricsEnabled toggles the Prometheus queue-depth/iteration gauges.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// TracingEnabled toggles the OpenTelemetry fixpoint/phase spans.
	TracingEnabled bool `yaml:"tracing_enabled"`
}

// Default returns the configuration used when no file is supplied,
// matching scheduler.DefaultConfig's own cap.
func Default() *Config {
	return &Config{
		MaxIterations:  scheduler.DefaultConfig().MaxIterations,
		LogLevel:       "info",
		LogFormat:      "console",
		MetricsEnabled: true,
		TracingEnabled: true,
	}
}

// schema is the CUE schema every loaded config must satisfy, beyond what
// struct tags alone can express (e.g. the same oneof/gt constraints, kept
// here too so a config can be checked before it is ever unmarshaled into
// the Go struct — mirrors the teacher's schema-then-validator double
// check in cue_parser.go).
const schema = `
max_iterations: int & >0
log_level:      "trace" | "debug" | "info" | "warn" | "error" | "fatal"
log_format:     "console" | "json"
metrics_enabled?: bool
tracing_enabled?: bool
`

// Load reads a YAML file at path, validates it against schema and the
// struct's validate tags, and returns the parsed Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and unmarshals raw YAML bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config yaml: %w", err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config yaml: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func validateAgainstSchema(raw map[string]interface{}) error {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	instance := ctx.Encode(raw)
	unified := schemaVal.Unify(instance)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config failed schema validation: %w", err)
	}
	return nil
}

// ToSchedulerConfig projects the iteration cap into scheduler.Config, the
// shape pkg/scheduler.Run actually takes.
func (c *Config) ToSchedulerConfig() scheduler.Config {
	return scheduler.Config{MaxIterations: c.MaxIterations}
}

// ToTelemetryConfig projects the logging/metrics/tracing toggles into a
// telemetry.Config, filling in the rest from telemetry.DefaultConfig.
func (c *Config) ToTelemetryConfig() *telemetry.Config {
	tcfg := telemetry.DefaultConfig()
	tcfg.Logging.Level = c.LogLevel
	tcfg.Logging.Format = c.LogFormat
	tcfg.Metrics.Enabled = c.MetricsEnabled
	tcfg.Tracing.Enabled = c.TracingEnabled
	return tcfg
}

// Watcher reloads Config from path whenever it changes on disk, handing
// each successfully-parsed update to onChange. A parse failure on reload
// is dropped rather than propagated — the process keeps running on its
// last-good Config, matching the teacher's policy loader's "log and keep
// serving" reload behaviour.
type Watcher struct {
	fs *fsnotify.Watcher
}

// Watch starts watching path for changes, in a background goroutine, and
// returns a Watcher the caller must Close when done.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching config %s: %w", path, err)
	}

	go func() {
		for event := range fw.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue
			}
			onChange(cfg)
		}
	}()

	return &Watcher{fs: fw}, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
