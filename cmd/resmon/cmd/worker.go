package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/resmon/internal/harness"
)

// workerCmd is started by demo; it prints a single JSON report on stdout.
var workerCmd = &cobra.Command{
	Use:                "worker kind [flags]",
	Hidden:             true,
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, wcfg, err := harness.ParseWorkerArgs(args)
		if err != nil {
			return err
		}
		if err := setLogLevel(wcfg.LogLevel); err != nil {
			return err
		}
		return harness.Work(cmd.Context(), os.Stdout, w, wcfg, log.WithField("component", "worker"))
	},
}
