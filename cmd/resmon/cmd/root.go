package cmd

import (
	"os"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/resmon/internal/config"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "resmon",
	Short: "In-process resource sampler",
	Long: `resmon samples the CPU, memory, disk and network state of a process at a fixed
cadence, the way a hypervisor would, and reports the raw snapshots.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return setLogLevel(cfg.LogLevel)
	},
}

func init() {
	cfg.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(demoCmd, workerCmd, watchCmd)
}

func setLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	log.SetLevel(lvl)
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
