package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove leftover transient downloads once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		maxAge, err := cfg.TransientMaxAge()
		if err != nil {
			return err
		}
		n, err := scheduler.NewSweeper(cfg.TransientDir(), maxAge, metrics.New()).Sweep()
		if err != nil {
			return fmt.Errorf("sweep %s: %w", cfg.TransientDir(), err)
		}
		fmt.Fprintf(os.Stdout, "Removed %d stale entries from %s.\n", n, cfg.TransientDir())
		return nil
	},
}
