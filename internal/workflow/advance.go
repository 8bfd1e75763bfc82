package workflow

import (
	"fmt"
	"time"
)

// Advance applies a status change to the active phase and returns the new
// snapshot with the events it produced. The receiver is never modified; on
// error the returned Workflow is the receiver unchanged.
//
// Approving a phase starts the next one (auto-advance); approving the last
// phase completes the workflow and emits EventWorkflowCompleted.
func (w Workflow) Advance(name PhaseName, to Status, notes string, now time.Time) (Workflow, []Event, error) {
	idx, known := phaseIndex(name)
	head := w.frontier()
	if !known || head >= len(w.Phases) || idx != head {
		active := PhaseName("")
		if head < len(w.Phases) {
			active = w.Phases[head].Name
		}
		return w, nil, &InvalidPhaseError{Phase: name, Active: active}
	}

	from := w.Phases[idx].Status
	if !CanTransition(from, to) {
		return w, nil, &IllegalTransitionError{Phase: name, From: from, To: to}
	}

	now = now.UTC()
	next := w.Clone()
	phase := &next.Phases[idx]
	phase.Status = to
	phase.UpdatedAt = now

	event := Event{EpisodeID: w.EpisodeID, Phase: name, From: from, To: to, Notes: notes, At: now}
	var events []Event

	switch to {
	case StatusInProgress:
		if phase.StartedAt == nil {
			started := now
			phase.StartedAt = &started
		}
		next.Current = name
		event.Kind = EventPhaseStarted
		events = append(events, event)
	case StatusReview:
		event.Kind = EventReviewRequested
		events = append(events, event)
	case StatusRejected:
		phase.ReviewNotes = notes
		event.Kind = EventPhaseRejected
		events = append(events, event)
	case StatusApproved:
		completed := now
		phase.CompletedAt = &completed
		phase.ReviewNotes = notes
		event.Kind = EventPhaseApproved
		events = append(events, event)

		if idx+1 < len(next.Phases) {
			following := &next.Phases[idx+1]
			following.Status = StatusInProgress
			started := now
			following.StartedAt = &started
			following.UpdatedAt = now
			next.Current = following.Name
			events = append(events, Event{
				Kind:      EventPhaseStarted,
				EpisodeID: w.EpisodeID,
				Phase:     following.Name,
				From:      StatusPending,
				To:        StatusInProgress,
				At:        now,
			})
		} else {
			next.Current = ""
			events = append(events, Event{
				Kind:      EventWorkflowCompleted,
				EpisodeID: w.EpisodeID,
				Phase:     name,
				At:        now,
			})
		}
	}

	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return w, nil, fmt.Errorf("advance %s to %s: %w", name, to, err)
	}
	return next, events, nil
}
