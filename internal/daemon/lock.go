package daemon

import (
	"fmt"

	"github.com/gofrs/flock"

	"docflow/internal/config"
)

// IsRunning reports whether another process holds the daemon lock. It never
// blocks: the lock is probed and released immediately.
func IsRunning(cfg *config.Config) (bool, error) {
	probe := flock.New(cfg.LockPath())
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	if err := probe.Unlock(); err != nil {
		return false, fmt.Errorf("release daemon lock probe: %w", err)
	}
	return false, nil
}
