package sampler

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/Dicklesworthstone/resmon/internal/provider"
)

// ErrorPolicy decides what the loop does when a periodic sample fails.
type ErrorPolicy int

const (
	// AbortOnError stops the loop. The cause is reported by Err and Wait, and
	// the final sample is still attempted.
	AbortOnError ErrorPolicy = iota
	// SkipOnError drops the tick, counts it in Summary.Skipped and keeps going.
	SkipOnError
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case SkipOnError:
		return "skip"
	default:
		return "unknown"
	}
}

func defaultOptions() *Options {
	return &Options{
		PID:         int32(os.Getpid()),
		Clock:       clock.RealClock{},
		ErrorPolicy: AbortOnError,
		Output:      os.Stdout,
		Log:         logrus.WithField("component", "sampler"),
	}
}

type Options struct {
	PID         int32
	Handle      provider.Handle
	Clock       clock.Clock
	ErrorPolicy ErrorPolicy
	Output      io.Writer
	Log         *logrus.Entry
	AllowDrift  bool
}

type Option func(*Options)

// WithPID monitors another process instead of the current one.
func WithPID(pid int32) Option {
	return func(opts *Options) {
		opts.PID = pid
	}
}

// WithHandle uses an already opened handle. It takes precedence over WithPID.
func WithHandle(h provider.Handle) Option {
	return func(opts *Options) {
		opts.Handle = h
	}
}

func WithClock(c clock.Clock) Option {
	return func(opts *Options) {
		opts.Clock = c
	}
}

func WithErrorPolicy(p ErrorPolicy) Option {
	return func(opts *Options) {
		opts.ErrorPolicy = p
	}
}

// WithOutput sets the sink the summary is written to when output is enabled.
func WithOutput(w io.Writer) Option {
	return func(opts *Options) {
		opts.Output = w
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(opts *Options) {
		opts.Log = l
	}
}

// AllowCadenceDrift accepts a signal interval that does not divide the sample
// interval. The effective period is then rounded up to the next multiple of
// the signal interval.
func AllowCadenceDrift() Option {
	return func(opts *Options) {
		opts.AllowDrift = true
	}
}
