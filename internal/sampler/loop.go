package sampler

import (
	"context"
	"time"
)

// run checks the running flag every signal interval and samples once a full
// sample interval has accumulated. Termination latency is bounded by the
// signal interval, not the sample interval.
func (s *Sampler) run() {
	defer close(s.done)

	var elapsed time.Duration
	for s.running.Load() {
		if !s.step(&elapsed) {
			return
		}
		<-s.opts.Clock.After(s.signalInterval)
		elapsed += s.signalInterval
	}
}

// step takes a sample when elapsed has reached the sample interval. It returns
// false when the loop has to stop.
func (s *Sampler) step(elapsed *time.Duration) bool {
	if *elapsed < s.sampleInterval {
		return true
	}
	*elapsed = 0

	snap, err := s.builder.Build(context.Background(), s.counters())
	if err == nil {
		s.records = append(s.records, snap)
		return true
	}

	switch s.opts.ErrorPolicy {
	case SkipOnError:
		s.skipped++
		s.log.WithError(err).Warn("sample failed, skipping tick")
		return true
	default:
		s.loopErr = err
		s.log.WithError(err).Error("sample failed, stopping sampler loop")
		return false
	}
}
