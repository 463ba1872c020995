package config

import (
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/caarlos0/env/v9"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RESMON_"

// Focus values select the snapshot section a report is reduced to.
const (
	// FocusAuto reduces each workload report to the section it stresses.
	FocusAuto    = "auto"
	FocusAll     = "all"
	FocusCPU     = "cpu"
	FocusMemory  = "memory"
	FocusDisk    = "disk"
	FocusNetwork = "network"
)

// Config carries runtime options for resmon.
// Durations are read from the environment through envDurations.
type Config struct {
	SampleInterval time.Duration
	SignalInterval time.Duration
	Focus          string `env:"FOCUS"`
	JSON           bool   `env:"JSON"`
	LogLevel       string `env:"LOG_LEVEL"`

	// watch
	PID            int32 `env:"PID"`
	StreamInterval time.Duration
}

// Duration is a time.Duration that also accepts a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type envDurations struct {
	SampleInterval Duration `env:"SAMPLE_INTERVAL"`
	SignalInterval Duration `env:"SIGNAL_INTERVAL"`
	StreamInterval Duration `env:"STREAM_INTERVAL"`
}

func Default() Config {
	return Config{
		SampleInterval: 500 * time.Millisecond,
		SignalInterval: 100 * time.Millisecond,
		Focus:          FocusAuto,
		JSON:           false,
		LogLevel:       "info",
		PID:            0,
		StreamInterval: time.Second,
	}
}

// BindFlags registers the flags of every option on fs, using the current
// values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&c.SampleInterval, "sample-interval", c.SampleInterval, "interval between two samples")
	fs.DurationVar(&c.SignalInterval, "signal-interval", c.SignalInterval, "interval between two termination checks, must divide the sample interval")
	fs.StringVar(&c.Focus, "focus", c.Focus, "section to report: auto|all|cpu|memory|disk|network")
	fs.BoolVar(&c.JSON, "json", c.JSON, "print reports as JSON")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	fs.Int32Var(&c.PID, "pid", c.PID, "process to watch, 0 for resmon itself")
	fs.DurationVar(&c.StreamInterval, "interval", c.StreamInterval, "refresh interval of the live view")
}

// ApplyEnv overrides options from RESMON_* variables. Durations accept a bare
// number of seconds.
func (c *Config) ApplyEnv() error {
	opts := env.Options{Prefix: EnvPrefix}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.Wrap(err, "reading env vars")
	}

	d := envDurations{
		SampleInterval: Duration(c.SampleInterval),
		SignalInterval: Duration(c.SignalInterval),
		StreamInterval: Duration(c.StreamInterval),
	}
	if err := env.ParseWithOptions(&d, opts); err != nil {
		return errors.Wrap(err, "reading env vars")
	}
	c.SampleInterval = time.Duration(d.SampleInterval)
	c.SignalInterval = time.Duration(d.SignalInterval)
	c.StreamInterval = time.Duration(d.StreamInterval)
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (c *Config) Validate() error {
	switch c.Focus {
	case FocusAuto, FocusAll, FocusCPU, FocusMemory, FocusDisk, FocusNetwork:
	default:
		return errors.Errorf("unknown focus %q", c.Focus)
	}
	if c.StreamInterval <= 0 {
		return errors.Errorf("refresh interval must be positive, got %s", c.StreamInterval)
	}
	return nil
}

// FromFlags parses flags and environment overrides.
func FromFlags(args []string) (Config, error) {
	cfg := Default()
	fs := pflag.NewFlagSet("resmon", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
