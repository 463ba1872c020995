package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/resmon/internal/harness"
)

var demoCmd = &cobra.Command{
	Use:   "demo [kind...]",
	Short: "Run the sample workloads, each in its own monitored process",
	Long: `Runs file-io, idle, busy and memory workloads concurrently, one process each,
and prints what the sampler of every process observed. Passing kinds restricts the
run to those workloads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workloads, err := selectWorkloads(args)
		if err != nil {
			return err
		}
		exe, err := os.Executable()
		if err != nil {
			return errors.Wrap(err, "locating resmon executable")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := &harness.Runner{
			Command: harness.WorkerCommand(exe),
			Config:  cfg,
			Log:     log.WithField("component", "runner"),
		}

		start := time.Now()
		fmt.Fprintln(cmd.OutOrStdout(), "test started.")
		fmt.Fprintln(cmd.OutOrStdout())
		reports, err := runner.Run(ctx, workloads)
		if err != nil {
			return err
		}
		for _, rep := range reports {
			if err := harness.Digest(cmd.OutOrStdout(), rep, cfg.Focus, cfg.JSON); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "test completed.")
		log.WithField("time-elapsed", time.Since(start)).Debug("demo finished")
		return nil
	},
}

func selectWorkloads(kinds []string) ([]harness.Workload, error) {
	suite := harness.DefaultSuite()
	if len(kinds) == 0 {
		return suite, nil
	}
	var selected []harness.Workload
	for _, k := range kinds {
		found := false
		for _, w := range suite {
			if string(w.Kind) == k {
				selected = append(selected, w)
				found = true
			}
		}
		if !found {
			return nil, errors.Errorf("unknown workload %q", k)
		}
	}
	return selected, nil
}
