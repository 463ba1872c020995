package sampler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/resmon/internal/model"
	"github.com/Dicklesworthstone/resmon/internal/provider"
)

// Sampler snapshots a process in the background while the foreground code
// runs, then hands back every snapshot plus one final sample.
//
// The running flag and the counters are written by the foreground only, the
// records by the loop only. Records are read after the loop has exited.
type Sampler struct {
	sampleInterval time.Duration
	signalInterval time.Duration
	emitOutput     bool
	opts           *Options
	log            *logrus.Entry

	builder *Builder

	running     atomic.Bool
	started     atomic.Bool
	frozen      atomic.Bool
	invocations atomic.Uint64
	download    atomic.Uint64
	upload      atomic.Uint64

	// owned by the loop until done is closed
	records []model.Snapshot
	skipped int
	loopErr error
	done    chan struct{}

	mu      sync.Mutex
	summary *model.Summary
	err     error
}

// New creates a sampler for the current process, or the one selected by
// WithPID/WithHandle. A zero signalInterval defaults to sampleInterval.
// signalInterval must divide sampleInterval unless AllowCadenceDrift is given.
//
// Sampling failures in the loop abort it by default (AbortOnError); use
// WithErrorPolicy(SkipOnError) to keep sampling instead.
func New(sampleInterval, signalInterval time.Duration, emitOutput bool, opts ...Option) (*Sampler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if signalInterval == 0 {
		signalInterval = sampleInterval
	}
	if err := validate(sampleInterval, signalInterval, o.AllowDrift); err != nil {
		return nil, err
	}

	ctx := context.Background()
	handle := o.Handle
	if handle == nil {
		proc, err := provider.NewProcess(ctx, o.PID)
		if err != nil {
			return nil, err
		}
		handle = proc
	}
	builder, err := NewBuilder(ctx, handle, o.Clock)
	if err != nil {
		return nil, errors.Wrap(err, "reading process creation time")
	}

	s := &Sampler{
		sampleInterval: sampleInterval,
		signalInterval: signalInterval,
		emitOutput:     emitOutput,
		opts:           o,
		log:            o.Log.WithField("pid", handle.Pid()),
		builder:        builder,
		done:           make(chan struct{}),
	}
	s.running.Store(true)

	s.log.WithFields(logrus.Fields{
		"sample-interval": sampleInterval,
		"signal-interval": signalInterval,
		"error-policy":    o.ErrorPolicy,
	}).Debug("sampler created")
	return s, nil
}

func validate(sample, signal time.Duration, allowDrift bool) error {
	switch {
	case sample <= 0:
		return errors.Wrapf(ErrConfiguration, "sample interval must be positive, got %s", sample)
	case signal <= 0:
		return errors.Wrapf(ErrConfiguration, "signal interval must be positive, got %s", signal)
	case !allowDrift && sample%signal != 0:
		return errors.Wrapf(ErrConfiguration, "signal interval %s does not divide sample interval %s", signal, sample)
	}
	return nil
}

// Start runs the sampling loop in a new goroutine.
func (s *Sampler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go s.run()
	return nil
}

// SignalTerminate asks the loop to stop at its next signal check. It does not
// wait for it.
func (s *Sampler) SignalTerminate() {
	s.running.Store(false)
}

// ReportServiceInvocation counts one cloud service trigger. It returns
// ErrFrozen once Wait has frozen the summary.
func (s *Sampler) ReportServiceInvocation() error {
	if s.frozen.Load() {
		return ErrFrozen
	}
	s.invocations.Add(1)
	return nil
}

// ReportDownload adds n bytes to the downloaded volume. It returns ErrFrozen
// once Wait has frozen the summary.
func (s *Sampler) ReportDownload(n uint64) error {
	if s.frozen.Load() {
		return ErrFrozen
	}
	s.download.Add(n)
	return nil
}

// ReportUpload adds n bytes to the uploaded volume. It returns ErrFrozen once
// Wait has frozen the summary.
func (s *Sampler) ReportUpload(n uint64) error {
	if s.frozen.Load() {
		return ErrFrozen
	}
	s.upload.Add(n)
	return nil
}

func (s *Sampler) counters() Counters {
	return Counters{
		ServiceInvocations: s.invocations.Load(),
		Download:           s.download.Load(),
		Upload:             s.upload.Load(),
	}
}

// CreateTime is the creation time of the monitored process.
func (s *Sampler) CreateTime() time.Time { return s.builder.CreateTime() }

// Pid of the monitored process.
func (s *Sampler) Pid() int32 { return s.builder.Pid() }

// Err returns the error that aborted the loop, if any. It is only meaningful
// once Wait has returned.
func (s *Sampler) Err() error {
	select {
	case <-s.done:
		return s.loopErr
	default:
		return nil
	}
}

// Summary returns the frozen summary, or nil until Wait has completed.
func (s *Sampler) Summary() *model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Wait blocks until the loop exits, then takes the final sample and freezes
// the summary. It blocks forever if SignalTerminate is never called and the
// loop does not abort on its own.
func (s *Sampler) Wait() (*model.Summary, error) {
	return s.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. When ctx ends before the loop exits the
// sampler is left untouched and a later call can still complete. ctx only
// bounds the wait for the loop: once the loop has exited the final sample is
// always taken.
func (s *Sampler) WaitContext(ctx context.Context) (*model.Summary, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	select {
	case <-s.done:
	default:
		select {
		case <-s.done:
		case <-ctx.Done():
			return nil, errors.Combine(ErrWaitAborted, ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != nil {
		return s.summary, s.err
	}

	records := s.records
	if records == nil {
		records = []model.Snapshot{}
	}
	summary := &model.Summary{Records: records, Skipped: s.skipped}
	final, finalErr := s.builder.Build(context.Background(), s.counters())
	if finalErr != nil {
		finalErr = errors.Wrap(finalErr, "taking final sample")
		summary.Partial = true
		summary.Error = finalErr.Error()
		s.log.WithError(finalErr).Error("final sample failed, summary is partial")
	} else {
		summary.FinalSample = &final
	}
	s.frozen.Store(true)
	s.summary = summary
	s.err = errors.Combine(s.loopErr, finalErr)

	s.log.WithFields(logrus.Fields{
		"records": len(summary.Records),
		"skipped": summary.Skipped,
		"partial": summary.Partial,
	}).Debug("summary frozen")

	if s.emitOutput {
		if err := WriteSummary(s.opts.Output, summary); err != nil {
			s.err = errors.Combine(s.err, errors.Wrap(err, "emitting summary"))
		}
	}
	return s.summary, s.err
}
