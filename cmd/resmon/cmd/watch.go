package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/Dicklesworthstone/resmon/internal/provider"
	"github.com/Dicklesworthstone/resmon/internal/sampler"
	"github.com/Dicklesworthstone/resmon/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live snapshots of a process",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := cfg.PID
		if pid == 0 {
			pid = int32(os.Getpid())
		}
		handle, err := provider.NewProcess(cmd.Context(), pid)
		if err != nil {
			return err
		}
		b, err := sampler.NewBuilder(cmd.Context(), handle, clock.RealClock{})
		if err != nil {
			return err
		}
		return ui.RunTUI(cfg, b)
	},
}
