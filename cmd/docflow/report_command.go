package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/report"
	"docflow/internal/workflow"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show phase status counts and overdue reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				board, err := report.Generate(c, a.store, a.policy, time.Now())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromBoard(board))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Episodes: %d  Complete: %d  Not started: %d\n\n", board.Episodes, board.Completed, board.NotStarted)

				statuses := workflow.AllStatuses()
				headers := []string{"Phase"}
				aligns := []columnAlignment{alignLeft}
				for _, status := range statuses {
					headers = append(headers, status.Label())
					aligns = append(aligns, alignRight)
				}
				rows := make([][]string, 0, len(board.Phases))
				for _, pc := range board.Phases {
					row := []string{pc.Phase.Label()}
					for _, status := range statuses {
						row = append(row, strconv.Itoa(pc.Counts[status]))
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))

				if len(board.Overdue) == 0 {
					return nil
				}
				color := colorEnabled(out)
				overdue := make([][]string, 0, len(board.Overdue))
				for _, o := range board.Overdue {
					overdue = append(overdue, []string{
						o.EpisodeTitle,
						o.Phase.Label(),
						statusBadge(o.Status, color),
						report.FormatAge(o.Age),
						report.FormatAge(o.SLA),
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Overdue")
				fmt.Fprintln(out, renderTable(
					[]string{"Episode", "Phase", "Status", "Age", "SLA"},
					overdue,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
