package preflight

import (
	"context"
	"strings"
	"time"

	"docflow/internal/config"
)

// Pinger is satisfied by the workflow store.
type Pinger interface {
	Ping(ctx context.Context) error
	Path() string
}

// CheckDatabase reports whether the store answers a ping.
func CheckDatabase(ctx context.Context, db Pinger) Result {
	const name = "Database"

	if db == nil {
		return Result{Name: name, Detail: "Not opened"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: db.Path()}
}

// CheckNtfyFromConfig evaluates notification status from config and connectivity.
func CheckNtfyFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
}
