// Package notifications delivers ntfy push notifications for workflow
// events and overdue review alerts.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can publish unconditionally. Per-event toggles from the
// [notifications] config section are applied inside the service.
package notifications
