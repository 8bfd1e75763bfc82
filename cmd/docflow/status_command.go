package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/daemon"
	"docflow/internal/preflight"
)

type statusCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusReport struct {
	DaemonRunning bool          `json:"daemonRunning"`
	APIBind       string        `json:"apiBind"`
	Database      string        `json:"database"`
	Checks        []statusCheck `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				running, err := daemon.IsRunning(a.cfg)
				if err != nil {
					return err
				}

				results := preflight.RunAll(c, a.cfg)
				results = append(results, preflight.CheckDatabase(c, a.store))
				if strings.TrimSpace(a.cfg.Notifications.NtfyTopic) == "" {
					results = append(results, preflight.CheckNtfyFromConfig(c, a.cfg))
				}

				summary := statusReport{
					DaemonRunning: running,
					APIBind:       a.cfg.Paths.APIBind,
					Database:      a.store.Path(),
				}
				for _, r := range results {
					summary.Checks = append(summary.Checks, statusCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon running: %s\n", yesNo(running))
				fmt.Fprintf(out, "API bind:       %s\n", summary.APIBind)
				fmt.Fprintf(out, "Database:       %s\n\n", summary.Database)
				rows := make([][]string, 0, len(summary.Checks))
				for _, check := range summary.Checks {
					state := "ok"
					if !check.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil))
				return nil
			})
		},
	}
}
