package harness

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/resmon/internal/config"
)

// CommandFunc builds the command that runs a single workload process. The
// process must print one Report as JSON on its standard output.
type CommandFunc func(ctx context.Context, w Workload, cfg config.Config) *exec.Cmd

// WorkerCommand re-executes exe with the worker subcommand.
func WorkerCommand(exe string) CommandFunc {
	return func(ctx context.Context, w Workload, cfg config.Config) *exec.Cmd {
		return exec.CommandContext(ctx, exe, append([]string{"worker"}, WorkerArgs(w, cfg)...)...)
	}
}

// WorkerArgs are the worker subcommand arguments describing w.
func WorkerArgs(w Workload, cfg config.Config) []string {
	return []string{
		string(w.Kind),
		"--bytes", strconv.Itoa(w.Bytes),
		"--duration", w.Duration.String(),
		"--sample-interval", cfg.SampleInterval.String(),
		"--signal-interval", cfg.SignalInterval.String(),
		"--log-level", cfg.LogLevel,
	}
}

// Runner starts one process per workload and gathers their reports.
type Runner struct {
	Command CommandFunc
	Config  config.Config
	Log     *logrus.Entry
}

// Run executes every workload concurrently. Reports are returned in the order
// of workloads. The first failure cancels the remaining processes.
func (r *Runner) Run(ctx context.Context, workloads []Workload) ([]*Report, error) {
	reports := make([]*Report, len(workloads))
	g, ctx := errgroup.WithContext(ctx)
	for i, w := range workloads {
		i, w := i, w
		g.Go(func() error {
			rep, err := r.runOne(ctx, w)
			if err != nil {
				return errors.WrapWithDetails(err, "running workload", "workload", w.String())
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *Runner) runOne(ctx context.Context, w Workload) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	cmd := r.Command(ctx, w, r.Config)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	r.Log.WithField("workload", w.String()).Debug("starting workload process")
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var rep Report
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		return nil, errors.Wrap(err, "decoding workload report")
	}
	r.Log.WithFields(logrus.Fields{
		"workload": w.String(),
		"pid":      rep.PID,
		"samples":  rep.Summary.Len(),
	}).Debug("workload report received")
	return &rep, nil
}

// ParseWorkerArgs is the inverse of WorkerArgs.
func ParseWorkerArgs(args []string) (Workload, config.Config, error) {
	cfg := config.Default()
	var w Workload
	fs := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	fs.IntVar(&w.Bytes, "bytes", 0, "bytes to write or allocate")
	fs.DurationVar(&w.Duration, "duration", 0, "how long the workload lasts")
	if err := fs.Parse(args); err != nil {
		return w, cfg, err
	}
	if fs.NArg() != 1 {
		return w, cfg, errors.Errorf("expected exactly one workload kind, got %d", fs.NArg())
	}
	w.Kind = Kind(fs.Arg(0))
	return w, cfg, w.Validate()
}
