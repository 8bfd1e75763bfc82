package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sent, message, err := daemon.SendTestNotification(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", message, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"sent": sent, "message": message})
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
}
