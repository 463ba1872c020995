package sampler

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/Dicklesworthstone/resmon/internal/model"
	"github.com/Dicklesworthstone/resmon/internal/provider"
)

// tick waits for the loop to block on the fake clock, then advances it.
func tick(t *testing.T, fc *testingclock.FakeClock, d time.Duration, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
		fc.Step(d)
	}
}

// terminate stops a loop driven by a fake clock: the flag is cleared while the
// loop sleeps, then the clock releases it.
func terminate(t *testing.T, s *Sampler, fc *testingclock.FakeClock, d time.Duration) {
	t.Helper()
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
	s.SignalTerminate()
	fc.Step(d)
}

func nullLogger() *logrus.Entry {
	l, _ := logtest.NewNullLogger()
	return logrus.NewEntry(l)
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name   string
		sample time.Duration
		signal time.Duration
		opts   []Option
		valid  bool
	}{
		{name: "divisible", sample: 500 * time.Millisecond, signal: 100 * time.Millisecond, valid: true},
		{name: "signal defaults to sample", sample: time.Second, signal: 0, valid: true},
		{name: "zero sample", sample: 0, signal: 0},
		{name: "negative signal", sample: time.Second, signal: -time.Millisecond},
		{name: "not divisible", sample: time.Second, signal: 300 * time.Millisecond},
		{name: "not divisible with drift", sample: time.Second, signal: 300 * time.Millisecond,
			opts: []Option{AllowCadenceDrift()}, valid: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := append([]Option{WithHandle(newHandleMock(epoch)), WithLogger(nullLogger())}, c.opts...)
			s, err := New(c.sample, c.signal, false, opts...)
			if !c.valid {
				assert.ErrorIs(t, err, ErrConfiguration)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, s.signalInterval)
			if c.signal == 0 {
				assert.Equal(t, c.sample, s.signalInterval)
			}
		})
	}
}

func TestSampler_Step(t *testing.T) {
	// the loop body can be driven without starting the goroutine
	h := newHandleMock(epoch)
	s, err := New(500*time.Millisecond, 100*time.Millisecond, false,
		WithHandle(h), WithClock(testingclock.NewFakeClock(epoch)), WithLogger(nullLogger()))
	require.NoError(t, err)

	elapsed := 400 * time.Millisecond
	assert.True(t, s.step(&elapsed))
	assert.Equal(t, 400*time.Millisecond, elapsed)
	assert.Empty(t, s.records)
	assert.Zero(t, h.Calls())

	elapsed = 500 * time.Millisecond
	assert.True(t, s.step(&elapsed))
	assert.Zero(t, elapsed)
	assert.Len(t, s.records, 1)
}

func TestSampler_FakeClockScenario(t *testing.T) {
	const signal = 100 * time.Millisecond
	fc := testingclock.NewFakeClock(epoch)
	s, err := New(500*time.Millisecond, signal, false,
		WithHandle(newHandleMock(epoch.Add(-3*time.Second))), WithClock(fc), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	tick(t, fc, signal, 12)
	require.NoError(t, s.ReportUpload(4096))
	terminate(t, s, fc, signal)

	summary, err := s.Wait()
	require.NoError(t, err)
	require.Len(t, summary.Records, 2)
	require.NotNil(t, summary.FinalSample)

	assert.InDelta(t, 3.5, summary.Records[0].CPU.ElapsedTime, 1e-9)
	assert.InDelta(t, 4.0, summary.Records[1].CPU.ElapsedTime, 1e-9)
	assert.InDelta(t, 4.3, summary.FinalSample.CPU.ElapsedTime, 1e-9)
	assert.Zero(t, summary.Records[1].Network.Upload)
	assert.Equal(t, uint64(4096), summary.FinalSample.Network.Upload)
	assert.False(t, summary.Partial)
	assert.NoError(t, s.Err())
}

func TestSampler_Scenario(t *testing.T) {
	s, err := New(500*time.Millisecond, 100*time.Millisecond, false,
		WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(1200 * time.Millisecond)
	require.NoError(t, s.ReportUpload(4096))
	s.SignalTerminate()
	summary, err := s.Wait()

	require.NoError(t, err)
	assert.Len(t, summary.Records, 2)
	require.NotNil(t, summary.FinalSample)
	assert.Equal(t, uint64(4096), summary.FinalSample.Network.Upload)

	all := summary.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].CPU.ElapsedTime, all[i].CPU.ElapsedTime)
	}
}

func TestSampler_FinalSampleGuarantee(t *testing.T) {
	h := newHandleMock(time.Now())
	s, err := New(10*time.Second, 10*time.Millisecond, false, WithHandle(h), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	s.SignalTerminate()
	summary, err := s.Wait()

	require.NoError(t, err)
	assert.Empty(t, summary.Records)
	require.NotNil(t, summary.FinalSample)
	assert.Equal(t, 1, summary.Len())
	assert.Equal(t, 1, h.Calls())
}

func TestSampler_TerminateBeforeStart(t *testing.T) {
	s, err := New(time.Second, 0, false, WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)

	s.SignalTerminate()
	s.SignalTerminate()
	require.NoError(t, s.Start())

	summary, err := s.Wait()
	require.NoError(t, err)
	assert.Empty(t, summary.Records)
	assert.NotNil(t, summary.FinalSample)
}

func TestSampler_CounterAccumulation(t *testing.T) {
	s, err := New(time.Second, 10*time.Millisecond, false,
		WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	require.NoError(t, s.ReportDownload(100))
	require.NoError(t, s.ReportUpload(7))
	require.NoError(t, s.ReportDownload(100))
	require.NoError(t, s.ReportServiceInvocation())
	require.NoError(t, s.ReportDownload(100))
	require.NoError(t, s.ReportServiceInvocation())
	require.NoError(t, s.ReportUpload(3))

	s.SignalTerminate()
	summary, err := s.Wait()
	require.NoError(t, err)
	require.NotNil(t, summary.FinalSample)

	assert.Equal(t, uint64(300), summary.FinalSample.Network.Download)
	assert.Equal(t, uint64(10), summary.FinalSample.Network.Upload)
	assert.Equal(t, uint64(2), summary.FinalSample.CloudServiceTrigger)
}

func TestSampler_CadenceBound(t *testing.T) {
	s, err := New(time.Second, 200*time.Millisecond, false,
		WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	time.Sleep(2050 * time.Millisecond)
	s.SignalTerminate()
	summary, err := s.Wait()

	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(summary.Records), 1)
	assert.LessOrEqual(t, len(summary.Records), 2)
}

func TestSampler_NoMutationAfterFreeze(t *testing.T) {
	s, err := New(time.Second, 10*time.Millisecond, false,
		WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.ReportDownload(100))
	s.SignalTerminate()

	summary, err := s.Wait()
	require.NoError(t, err)

	assert.ErrorIs(t, s.ReportDownload(100), ErrFrozen)
	assert.ErrorIs(t, s.ReportUpload(1), ErrFrozen)
	assert.ErrorIs(t, s.ReportServiceInvocation(), ErrFrozen)
	assert.Equal(t, uint64(100), summary.FinalSample.Network.Download)

	again, err := s.Wait()
	require.NoError(t, err)
	assert.Same(t, summary, again)
	assert.Same(t, summary, s.Summary())
	assert.Equal(t, uint64(100), again.FinalSample.Network.Download)
}

func TestSampler_Misuse(t *testing.T) {
	s, err := New(time.Second, 0, false, WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)

	_, err = s.Wait()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Nil(t, s.Summary())

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	s.SignalTerminate()
	_, err = s.Wait()
	assert.NoError(t, err)
}

func TestSampler_WaitContext(t *testing.T) {
	s, err := New(time.Second, 10*time.Millisecond, false,
		WithHandle(newHandleMock(time.Now())), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	// without a termination signal the wait can only end through the context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	summary, err := s.WaitContext(ctx)
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrWaitAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, s.Summary())
	assert.NoError(t, s.ReportDownload(1), "an aborted wait does not freeze the sampler")

	s.SignalTerminate()
	summary, err = s.Wait()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), summary.FinalSample.Network.Download)
}

func TestSampler_WaitContextAfterLoopExit(t *testing.T) {
	const signal = 100 * time.Millisecond
	fc := testingclock.NewFakeClock(time.Now())
	s, err := New(5*signal, signal, false,
		WithHandle(newHandleMock(fc.Now())), WithClock(fc), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	terminate(t, s, fc, signal)
	require.Eventually(t, func() bool {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	// the context ends after the loop has exited
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := s.WaitContext(ctx)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.False(t, summary.Partial)
	assert.NotNil(t, summary.FinalSample)
}

func TestSampler_FinalSampleFailure(t *testing.T) {
	h := newHandleMock(time.Now())
	h.failAll = &provider.ReadError{Pid: h.pid, Key: provider.KeyNumFDs, Err: os.ErrNotExist}
	s, err := New(time.Second, 10*time.Millisecond, false, WithHandle(h), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.SignalTerminate()

	summary, err := s.Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NotNil(t, summary)
	assert.True(t, summary.Partial)
	assert.Nil(t, summary.FinalSample)
	assert.Contains(t, summary.Error, "num_fds")
}

func TestSampler_AbortOnError(t *testing.T) {
	const signal = 100 * time.Millisecond
	fc := testingclock.NewFakeClock(epoch)
	h := newHandleMock(epoch)
	h.failAt[1] = &provider.ReadError{Pid: h.pid, Key: provider.KeyIOCounters, Err: os.ErrPermission}
	s, err := New(500*time.Millisecond, signal, false,
		WithHandle(h), WithClock(fc), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	// the fifth wake up samples, fails and stops the loop on its own
	tick(t, fc, signal, 5)
	summary, err := s.Wait()

	assert.ErrorIs(t, err, os.ErrPermission)
	assert.ErrorIs(t, s.Err(), os.ErrPermission)
	assert.Empty(t, summary.Records)
	assert.NotNil(t, summary.FinalSample, "the final sample is still taken")
	assert.False(t, summary.Partial)
}

func TestSampler_SkipOnError(t *testing.T) {
	const signal = 100 * time.Millisecond
	fc := testingclock.NewFakeClock(epoch)
	h := newHandleMock(epoch)
	h.failAt[1] = &provider.ReadError{Pid: h.pid, Key: provider.KeyThreads, Err: os.ErrPermission}
	logger, hook := logtest.NewNullLogger()
	s, err := New(500*time.Millisecond, signal, false,
		WithHandle(h), WithClock(fc), WithErrorPolicy(SkipOnError), WithLogger(logrus.NewEntry(logger)))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	tick(t, fc, signal, 10)
	terminate(t, s, fc, signal)
	summary, err := s.Wait()

	require.NoError(t, err)
	assert.Len(t, summary.Records, 1)
	assert.Equal(t, 1, summary.Skipped)
	assert.NotNil(t, summary.FinalSample)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSampler_EmitOutput(t *testing.T) {
	var out bytes.Buffer
	s, err := New(time.Second, 10*time.Millisecond, true,
		WithHandle(newHandleMock(time.Now())), WithOutput(&out), WithLogger(nullLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.ReportServiceInvocation())
	s.SignalTerminate()

	_, err = s.Wait()
	require.NoError(t, err)

	var decoded model.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.NotNil(t, decoded.FinalSample)
	assert.Equal(t, uint64(1), decoded.FinalSample.CloudServiceTrigger)
	assert.Contains(t, out.String(), `"runtime_samples":[]`)
	assert.Contains(t, out.String(), `"cloud-service-trigger":1`)
}

func TestSampler_CreateTime(t *testing.T) {
	created := time.Now().Add(-time.Minute)
	s, err := New(time.Second, 0, false, WithHandle(newHandleMock(created)), WithLogger(nullLogger()))
	require.NoError(t, err)
	assert.Equal(t, created, s.CreateTime())
}
