package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/workflow"
)

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "advance <episode-id> <phase> <status>",
		Short: "Move the active phase of an episode to a new status",
		Long: "Move the active phase of an episode to a new status.\n\n" +
			"Phases: research, archive, script, voiceover, assembly.\n" +
			"Statuses: pending, in_progress, review, approved, rejected.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.AdvanceRequest{Phase: args[1], Status: args[2], Notes: notes}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				wf, err := a.service.Advance(c, args[0], req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, wf)
				}
				out := cmd.OutOrStdout()
				if wf.Complete {
					fmt.Fprintln(out, "All phases approved. Episode complete.")
					return nil
				}
				current := workflow.PhaseName(wf.CurrentPhase)
				fmt.Fprintf(out, "Active phase: %s (%s)\n",
					current.Label(),
					statusBadge(workflow.Status(wf.Summary[wf.CurrentPhase]), colorEnabled(out)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Review notes recorded with the transition")
	return cmd
}

func newCurrentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "current <episode-id>",
		Short: "Show the active phase of an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				phase, err := a.engine.CurrentPhase(c, args[0])
				var noActive *workflow.NoActivePhaseError
				if errors.As(err, &noActive) {
					if ctx.jsonOutput() {
						return writeJSON(cmd, map[string]any{"episodeId": args[0], "currentPhase": nil, "complete": noActive.Complete})
					}
					if noActive.Complete {
						fmt.Fprintln(cmd.OutOrStdout(), "No active phase: every phase is approved")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "No active phase: the workflow has not started")
					}
					return nil
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromPhase(phase))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d. %s: %s\n", phase.Name.Position(), phase.Name.Label(), statusBadge(phase.Status, colorEnabled(out)))
				if phase.ReviewNotes != "" {
					fmt.Fprintf(out, "Notes: %s\n", phase.ReviewNotes)
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <episode-id>",
		Short: "List the recorded status transitions of an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				history, err := a.service.History(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, history)
				}
				if len(history) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No transitions recorded")
					return nil
				}
				rows := make([][]string, 0, len(history))
				for _, t := range history {
					from := t.From
					if from == "" {
						from = "-"
					}
					rows = append(rows, []string{shortTime(t.At), workflow.PhaseName(t.Phase).Label(), from, t.To, t.Notes})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"At", "Phase", "From", "To", "Notes"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}
