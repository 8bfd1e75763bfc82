package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docflow/internal/api"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage documentary projects",
	}
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectUpdateCommand(ctx))
	projectCmd.AddCommand(newProjectDeleteCommand(ctx))
	return projectCmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				projects, err := a.service.ListProjects(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, projects)
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects. Create one with `docflow project create` or load the sample with `docflow seed`.")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					episodes, err := a.service.ListEpisodes(c, p.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{p.ID, p.Title, p.Status, strconv.Itoa(len(episodes))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Episodes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateProjectRequest
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Title = args[0]
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				project, err := a.service.CreateProject(c, req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, project)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Title, project.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&req.Status, "status", "", "Project status (default \"In Production\")")
	return cmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				project, err := a.service.GetProject(c, args[0])
				if err != nil {
					return err
				}
				episodes, err := a.service.ListEpisodes(c, project.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						api.Project
						Episodes []api.Episode `json:"episodes"`
					}{project, episodes})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", project.Title)
				fmt.Fprintf(out, "  ID:      %s\n", project.ID)
				fmt.Fprintf(out, "  Status:  %s\n", project.Status)
				if project.Description != "" {
					fmt.Fprintf(out, "  About:   %s\n", project.Description)
				}
				fmt.Fprintf(out, "  Created: %s\n", project.CreatedAt)
				if len(episodes) > 0 {
					rendered, err := renderEpisodeTable(c, a, episodes, colorEnabled(out))
					if err != nil {
						return err
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, rendered)
				}
				return nil
			})
		},
	}
}

func newProjectUpdateCommand(ctx *commandContext) *cobra.Command {
	var title, description, status string
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update project details or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.UpdateProjectRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			if req.Title == nil && req.Description == nil && req.Status == nil {
				return fmt.Errorf("nothing to update: pass --title, --description, or --status")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				project, err := a.service.UpdateProject(c, args[0], req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, project)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s (%s)\n", project.Title, project.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New status, e.g. \"Complete\"")
	return cmd
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and all of its episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if err := a.service.DeleteProject(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}
}
