package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/export"
	"docflow/internal/workflow"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:     "episode",
		Aliases: []string{"episodes", "ep"},
		Short:   "Manage episodes",
	}
	episodeCmd.AddCommand(newEpisodeListCommand(ctx))
	episodeCmd.AddCommand(newEpisodeCreateCommand(ctx))
	episodeCmd.AddCommand(newEpisodeShowCommand(ctx))
	episodeCmd.AddCommand(newEpisodeUpdateCommand(ctx))
	episodeCmd.AddCommand(newEpisodeDeleteCommand(ctx))
	episodeCmd.AddCommand(newEpisodeExportCommand(ctx))
	return episodeCmd
}

func newEpisodeListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the episodes of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				episodes, err := a.service.ListEpisodes(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, episodes)
				}
				if len(episodes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No episodes")
					return nil
				}
				rendered, err := renderEpisodeTable(c, a, episodes, colorEnabled(cmd.OutOrStdout()))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}
}

func newEpisodeCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateEpisodeRequest
	cmd := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create an episode and start its workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ProjectID = args[0]
			req.Title = args[1]
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				detail, err := a.service.CreateEpisode(c, req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created episode %s (%s)\n", detail.Title, detail.ID)
				if detail.Workflow.CurrentPhase != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Active phase: %s\n", workflow.PhaseName(detail.Workflow.CurrentPhase).Label())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Episode description")
	cmd.Flags().StringVar(&req.Duration, "duration", "", "Planned running time, e.g. \"45 min\"")
	return cmd
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Show an episode with its phase summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				detail, err := a.service.GetEpisode(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", detail.Title)
				fmt.Fprintf(out, "  ID:       %s\n", detail.ID)
				fmt.Fprintf(out, "  Project:  %s\n", detail.ProjectID)
				if detail.Duration != "" {
					fmt.Fprintf(out, "  Duration: %s\n", detail.Duration)
				}
				if detail.Description != "" {
					fmt.Fprintf(out, "  About:    %s\n", detail.Description)
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderWorkflowTable(detail.Workflow, colorEnabled(out)))
				return nil
			})
		},
	}
}

func newEpisodeUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, description, duration string
	cmd := &cobra.Command{
		Use:   "update <episode-id>",
		Short: "Update episode details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.UpdateEpisodeRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("duration") {
				req.Duration = &duration
			}
			if req.Title == nil && req.Description == nil && req.Duration == nil {
				return fmt.Errorf("nothing to update: pass --title, --description, or --duration")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				episode, err := a.service.UpdateEpisode(c, args[0], req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, episode)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated episode %s\n", episode.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&duration, "duration", "", "New planned running time")
	return cmd
}

func newEpisodeDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <episode-id>",
		Short: "Delete an episode and its workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if err := a.service.DeleteEpisode(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted episode %s\n", args[0])
				return nil
			})
		},
	}
}

func newEpisodeExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <episode-id>",
		Short: "Write the delivery manifest for a completed episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				packager := export.NewPackager(a.cfg.Paths.ExportDir, a.store, a.logger)
				path, err := packager.Write(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
}

func renderEpisodeTable(c context.Context, a *app, episodes []api.Episode, color bool) (string, error) {
	rows := make([][]string, 0, len(episodes))
	for _, ep := range episodes {
		wf, err := a.service.Workflow(c, ep.ID)
		if err != nil {
			return "", err
		}
		phase, status := "-", "Complete"
		if wf.CurrentPhase != "" {
			phase = workflow.PhaseName(wf.CurrentPhase).Label()
			status = statusBadge(workflow.Status(wf.Summary[wf.CurrentPhase]), color)
		} else if !wf.Complete {
			status = "Not started"
		}
		rows = append(rows, []string{ep.ID, ep.Title, ep.Duration, phase, status})
	}
	return renderTable(
		[]string{"ID", "Title", "Duration", "Phase", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	), nil
}

func renderWorkflowTable(wf api.Workflow, color bool) string {
	rows := make([][]string, 0, len(wf.Phases))
	for _, phase := range wf.Phases {
		marker := ""
		if phase.Name == wf.CurrentPhase {
			marker = "▶"
		}
		rows = append(rows, []string{
			marker,
			fmt.Sprintf("%d. %s", phase.Position, phase.Label),
			statusBadge(workflow.Status(phase.Status), color),
			shortTime(phase.StartedAt),
			shortTime(phase.CompletedAt),
			phase.ReviewNotes,
		})
	}
	return renderTable(
		[]string{"", "Phase", "Status", "Started", "Approved", "Notes"},
		rows,
		nil,
	)
}

// shortTime trims API timestamps to minutes for table display.
func shortTime(value string) string {
	if len(value) >= 16 {
		return value[:10] + " " + value[11:16]
	}
	return value
}
