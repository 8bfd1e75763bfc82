package workflow

import "time"

// EventKind names a workflow event collaborators can react to.
type EventKind string

const (
	EventPhaseStarted      EventKind = "phase_started"
	EventReviewRequested   EventKind = "review_requested"
	EventPhaseApproved     EventKind = "phase_approved"
	EventPhaseRejected     EventKind = "phase_rejected"
	EventWorkflowCompleted EventKind = "workflow_completed"
)

// Event describes one status change produced by Advance. Auto-advance after
// an approval yields a second PhaseStarted event for the next phase.
type Event struct {
	Kind      EventKind
	EpisodeID string
	Phase     PhaseName
	From      Status
	To        Status
	Notes     string
	At        time.Time
}

// Transition reports whether the event records a phase status change.
// WorkflowCompleted carries no status change of its own.
func (e Event) Transition() bool {
	return e.Kind != EventWorkflowCompleted
}
