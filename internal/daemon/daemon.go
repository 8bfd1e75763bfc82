package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/engine"
	"docflow/internal/events"
	"docflow/internal/export"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/preflight"
	"docflow/internal/report"
	"docflow/internal/store"
	"docflow/internal/telemetry"
	"docflow/internal/workflow"
)

// Daemon serves the API and runs the event subscribers and overdue monitor.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	bus      *events.Bus
	engine   *engine.Engine
	notifier notifications.Service
	monitor  *report.Monitor
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	DatabasePath string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	bus := events.NewBus(logger)
	eng := engine.NewFromConfig(cfg, st, bus, logger)
	notifier := notifications.NewService(cfg)
	packager := export.NewPackager(cfg.Paths.ExportDir, st, logger)
	policy := report.PolicyFromConfig(cfg)

	bus.Subscribe("notifications", notifications.WorkflowHandler(notifier, st))
	bus.Subscribe("export", packager.Handle, workflow.EventWorkflowCompleted)

	svc := api.NewService(st, eng, policy)
	handler := api.NewHandler(svc,
		api.WithToken(cfg.Paths.APIToken),
		api.WithLogger(logger),
		api.WithHealthCheck(st.Ping),
	)

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		bus:      bus,
		engine:   eng,
		notifier: notifier,
		monitor:  report.NewMonitor(st, notifier, policy, cfg.ReviewCheckInterval(), logger),
		api:      newAPIServer(cfg.Paths.APIBind, handler, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		ready:    make(chan struct{}),
	}, nil
}

// Run acquires the daemon lock, runs preflight checks, and serves until ctx
// is cancelled. Pending events are delivered before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docflow daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	if err := d.preflight(ctx); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, d.cfg)
	if err != nil {
		logging.WarnWithContext(d.logger, "tracing disabled", "telemetry_setup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check telemetry.otlp_endpoint"),
		)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			d.logger.Warn("tracing shutdown failed", logging.Error(err))
		}
	}()

	if err := d.api.listen(); err != nil {
		return err
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	defer d.running.Store(false)
	d.readyOnce.Do(func() { close(d.ready) })
	d.logger.Info("docflow daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
		logging.String("api", d.api.addr()),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return d.api.serve(groupCtx) })
	group.Go(func() error { return d.monitor.Run(groupCtx) })
	err = group.Wait()

	d.bus.Close()
	d.logger.Info("docflow daemon stopped")
	return err
}

func (d *Daemon) preflight(ctx context.Context) error {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		if result.Name == "ntfy" {
			logging.WarnWithContext(d.logger, "notification server unreachable", "preflight_warning",
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "notifications will be retried per event"),
			)
			continue
		}
		return fmt.Errorf("preflight %s: %s", strings.ToLower(result.Name), result.Detail)
	}
	return nil
}

// Ready is closed once the API listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Engine exposes the daemon's engine so in-process callers share its
// per-episode serialization.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	return SendTestNotification(ctx, d.cfg)
}

// SendTestNotification publishes a test message to the configured topic.
func SendTestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.addr(),
	}
}
