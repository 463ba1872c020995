package harness

import (
	"context"
	"io"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/resmon/internal/config"
	"github.com/Dicklesworthstone/resmon/internal/model"
	"github.com/Dicklesworthstone/resmon/internal/sampler"
)

// Report is what a workload process sends back to the runner.
type Report struct {
	Workload Workload       `json:"workload"`
	PID      int32          `json:"pid"`
	Measured time.Duration  `json:"measured"`
	Summary  *model.Summary `json:"summary"`
}

// Execute runs w in the current process under a sampler configured from cfg.
func Execute(ctx context.Context, w Workload, cfg config.Config, log *logrus.Entry) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	log = log.WithField("workload", w.String())

	s, err := sampler.New(cfg.SampleInterval, cfg.SignalInterval, false, sampler.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}

	begin := time.Now()
	runErr := w.run(s)
	measured := time.Since(begin)

	s.SignalTerminate()
	summary, err := s.WaitContext(ctx)
	if summary == nil {
		return nil, errors.Combine(runErr, err)
	}
	if err != nil {
		log.WithError(err).Warn("sampler reported an error")
	}
	log.WithField("time-elapsed", measured).Debug("workload done")

	return &Report{
		Workload: w,
		PID:      s.Pid(),
		Measured: measured,
		Summary:  summary,
	}, runErr
}

// Work executes w and writes its report as JSON to out. It is the body of a
// workload process.
func Work(ctx context.Context, out io.Writer, w Workload, cfg config.Config, log *logrus.Entry) error {
	report, err := Execute(ctx, w, cfg, log)
	if err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(report)
}
