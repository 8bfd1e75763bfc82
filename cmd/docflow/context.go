package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/engine"
	"docflow/internal/events"
	"docflow/internal/export"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/report"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// app bundles the services a command needs for one invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	bus     *events.Bus
	engine  *engine.Engine
	service *api.Service
	policy  report.Policy
}

// withApp opens the store and event subscribers, runs fn, then drains
// pending events before closing the store.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "docflow.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("process", "cli"))

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bus := events.NewBus(logger)
	defer bus.Close()
	bus.Subscribe("notifications", notifications.WorkflowHandler(notifications.NewService(cfg), st))
	bus.Subscribe("export", export.NewPackager(cfg.Paths.ExportDir, st, logger).Handle, workflow.EventWorkflowCompleted)

	eng := engine.NewFromConfig(cfg, st, bus, logger)
	policy := report.PolicyFromConfig(cfg)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		bus:     bus,
		engine:  eng,
		service: api.NewService(st, eng, policy),
		policy:  policy,
	}
	return fn(cmd.Context(), a)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
