package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/seed"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample project when the database is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				result, err := seed.Load(c, a.store, a.engine)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				if !result.Created {
					fmt.Fprintf(cmd.OutOrStdout(), "Database already has projects; nothing seeded (first project %s)\n", result.ProjectID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded project %s with %d episodes\n", result.ProjectID, result.Episodes)
				return nil
			})
		},
	}
}
