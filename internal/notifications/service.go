package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docflow/internal/config"
)

const userAgent = "docflow/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventPhaseStarted      Event = "phase_started"
	EventReviewRequested   Event = "review_requested"
	EventPhaseApproved     Event = "phase_approved"
	EventPhaseRejected     Event = "phase_rejected"
	EventWorkflowCompleted Event = "workflow_completed"
	EventReviewOverdue     Event = "review_overdue"
	EventTest              Event = "test"
)

// Payload carries event-specific values. Known keys: episodeTitle, phase,
// status, notes, age.
type Payload map[string]any

// Service defines the notification surface exposed to collaborators.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventPhaseStarted:      cfg.Notifications.PhaseStarted,
			EventReviewRequested:   cfg.Notifications.ReviewRequested,
			EventPhaseApproved:     cfg.Notifications.Approved,
			EventPhaseRejected:     cfg.Notifications.Rejected,
			EventWorkflowCompleted: cfg.Notifications.Completed,
			EventReviewOverdue:     cfg.Notifications.Overdue,
			EventTest:              true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("notifications: unknown event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	episode := payloadString(payload, "episodeTitle")
	if episode == "" {
		episode = "untitled episode"
	}
	phase := payloadString(payload, "phase")
	notes := payloadString(payload, "notes")

	switch event {
	case EventPhaseStarted:
		return message{
			title: "docflow - Phase Started",
			body:  fmt.Sprintf("▶️ %s started: %s", phase, episode),
			tags:  []string{"docflow", "phase", "started"},
		}, true
	case EventReviewRequested:
		return message{
			title: "docflow - Review Requested",
			body:  fmt.Sprintf("📝 %s ready for review: %s", phase, episode),
			tags:  []string{"docflow", "review", "requested"},
		}, true
	case EventPhaseApproved:
		return message{
			title: "docflow - Approved",
			body:  withNotes(fmt.Sprintf("✅ %s approved: %s", phase, episode), notes),
			tags:  []string{"docflow", "review", "approved"},
		}, true
	case EventPhaseRejected:
		return message{
			title:    "docflow - Revision Needed",
			body:     withNotes(fmt.Sprintf("↩️ %s needs revision: %s", phase, episode), notes),
			tags:     []string{"docflow", "review", "rejected"},
			priority: "high",
		}, true
	case EventWorkflowCompleted:
		return message{
			title:    "docflow - Episode Complete",
			body:     fmt.Sprintf("🎬 All phases approved: %s", episode),
			tags:     []string{"docflow", "workflow", "completed"},
			priority: "high",
		}, true
	case EventReviewOverdue:
		return message{
			title:    "docflow - Overdue",
			body:     fmt.Sprintf("⏰ %s %s for %s: %s", phase, payloadString(payload, "status"), payloadString(payload, "age"), episode),
			tags:     []string{"docflow", "review", "overdue"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "docflow - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"docflow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func withNotes(body, notes string) string {
	if notes == "" {
		return body
	}
	return body + "\nNotes: " + notes
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
