package notifications

import (
	"context"
	"fmt"

	"docflow/internal/store"
	"docflow/internal/workflow"
)

// EpisodeLookup resolves episode titles for notification text.
type EpisodeLookup interface {
	GetEpisode(ctx context.Context, id string) (*store.Episode, error)
}

var workflowEvents = map[workflow.EventKind]Event{
	workflow.EventPhaseStarted:      EventPhaseStarted,
	workflow.EventReviewRequested:   EventReviewRequested,
	workflow.EventPhaseApproved:     EventPhaseApproved,
	workflow.EventPhaseRejected:     EventPhaseRejected,
	workflow.EventWorkflowCompleted: EventWorkflowCompleted,
}

// WorkflowHandler adapts svc into an event bus subscriber.
func WorkflowHandler(svc Service, episodes EpisodeLookup) func(context.Context, workflow.Event) error {
	return func(ctx context.Context, event workflow.Event) error {
		kind, ok := workflowEvents[event.Kind]
		if !ok {
			return nil
		}
		payload := Payload{
			"phase": event.Phase.Label(),
			"notes": event.Notes,
		}
		if episodes != nil {
			ep, err := episodes.GetEpisode(ctx, event.EpisodeID)
			if err != nil {
				return fmt.Errorf("resolve episode for notification: %w", err)
			}
			payload["episodeTitle"] = ep.Title
		}
		return svc.Publish(ctx, kind, payload)
	}
}
