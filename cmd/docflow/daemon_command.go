package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docflow/internal/daemon"
	"docflow/internal/logging"
	"docflow/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the API server and overdue monitor in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, err := daemon.IsRunning(cfg)
			if err != nil {
				return err
			}
			if running {
				return fmt.Errorf("docflow daemon is already running (lock %s)", cfg.LockPath())
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			d, err := daemon.New(cfg, st, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				select {
				case <-d.Ready():
					fmt.Fprintf(cmd.OutOrStdout(), "docflow listening on %s (Ctrl+C to stop)\n", d.Status().APIAddress)
				case <-runCtx.Done():
				}
			}()

			if err := d.Run(runCtx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}
