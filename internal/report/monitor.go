package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/workflow"
)

// Monitor periodically checks for overdue reviews and alerts once per entry.
type Monitor struct {
	lister   Lister
	notifier notifications.Service
	policy   Policy
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	alerted map[string]struct{}
}

// NewMonitor creates a monitor. A nil notifier disables alerts but still
// logs overdue entries.
func NewMonitor(lister Lister, notifier notifications.Service, policy Policy, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		lister:   lister,
		notifier: notifier,
		policy:   policy,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "overdue-monitor"),
		now:      time.Now,
		alerted:  make(map[string]struct{}),
	}
}

// Check evaluates overdue entries once and returns how many new alerts were
// raised. Entries that are no longer overdue are forgotten so a later review
// round can alert again.
func (m *Monitor) Check(ctx context.Context) (int, error) {
	entries, err := m.lister.ListWorkflows(ctx)
	if err != nil {
		return 0, err
	}
	overdue := FindOverdue(entries, m.policy, m.now())

	m.mu.Lock()
	current := make(map[string]struct{}, len(overdue))
	var fresh []Overdue
	for _, item := range overdue {
		key := item.Key()
		current[key] = struct{}{}
		if _, seen := m.alerted[key]; !seen {
			fresh = append(fresh, item)
		}
	}
	m.alerted = current
	m.mu.Unlock()

	raised := 0
	for _, item := range fresh {
		logger := m.logger.With(
			logging.String(logging.FieldEpisodeID, item.EpisodeID),
			logging.String(logging.FieldPhase, string(item.Phase)),
		)
		logger.Warn("phase overdue",
			logging.String(logging.FieldEventType, "review_overdue"),
			logging.String("status", string(item.Status)),
			logging.Duration("age", item.Age),
			logging.Duration("sla", item.SLA),
		)
		if m.notifier == nil {
			raised++
			continue
		}
		err := m.notifier.Publish(ctx, notifications.EventReviewOverdue, notifications.Payload{
			"episodeTitle": item.EpisodeTitle,
			"phase":        item.Phase.Label(),
			"status":       overdueLabel(item.Status),
			"age":          FormatAge(item.Age),
		})
		if err != nil {
			logging.WarnWithContext(logger, "overdue notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network connectivity"),
			)
			m.forget(item.Key())
			continue
		}
		raised++
	}
	return raised, nil
}

func (m *Monitor) forget(key string) {
	m.mu.Lock()
	delete(m.alerted, key)
	m.mu.Unlock()
}

// Run checks on every interval tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.policy.ReviewSLA <= 0 && m.policy.RevisionSLA <= 0 {
		m.logger.Info("overdue monitor disabled; no SLA configured")
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("overdue monitor started", logging.Duration("interval", m.interval))
	for {
		if _, err := m.Check(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logging.WarnWithContext(m.logger, "overdue check failed", "overdue_check_failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func overdueLabel(status workflow.Status) string {
	if status == workflow.StatusRejected {
		return "awaiting revision"
	}
	return "in review"
}
