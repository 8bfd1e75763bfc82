package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Workflow is the ordered phase-state container owned by one episode.
type Workflow struct {
	EpisodeID string
	Phases    []Phase
	// Current names the active phase; empty when complete or not started.
	Current PhaseName
	// Version increments on every persisted change.
	Version   int64
	UpdatedAt time.Time
}

// Summary maps each phase to its status for dashboard reporting.
type Summary map[PhaseName]Status

// New returns a started workflow: research in progress, the rest pending.
func New(episodeID string, now time.Time) Workflow {
	wf := NewDeferred(episodeID, now)
	started := now.UTC()
	wf.Phases[0].Status = StatusInProgress
	wf.Phases[0].StartedAt = &started
	wf.Current = wf.Phases[0].Name
	return wf
}

// NewDeferred returns a workflow whose phases are all pending. The first
// Advance(research, in_progress) starts it.
func NewDeferred(episodeID string, now time.Time) Workflow {
	now = now.UTC()
	phases := make([]Phase, 0, PhaseCount)
	for _, name := range phaseOrder {
		phases = append(phases, Phase{Name: name, Status: StatusPending, UpdatedAt: now})
	}
	return Workflow{
		EpisodeID: episodeID,
		Phases:    phases,
		Version:   1,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (w Workflow) Clone() Workflow {
	cp := w
	cp.Phases = make([]Phase, len(w.Phases))
	for i, phase := range w.Phases {
		cp.Phases[i] = phase
		if phase.StartedAt != nil {
			t := *phase.StartedAt
			cp.Phases[i].StartedAt = &t
		}
		if phase.CompletedAt != nil {
			t := *phase.CompletedAt
			cp.Phases[i].CompletedAt = &t
		}
	}
	return cp
}

// Phase returns the named phase.
func (w Workflow) Phase(name PhaseName) (Phase, bool) {
	for _, phase := range w.Phases {
		if phase.Name == name {
			return phase, true
		}
	}
	return Phase{}, false
}

// CurrentPhase returns the phase that is in progress, in review, or rejected
// and awaiting revision.
func (w Workflow) CurrentPhase() (Phase, error) {
	idx := w.frontier()
	if idx >= len(w.Phases) {
		return Phase{}, &NoActivePhaseError{EpisodeID: w.EpisodeID, Complete: true}
	}
	if !w.Phases[idx].Status.IsActive() {
		return Phase{}, &NoActivePhaseError{EpisodeID: w.EpisodeID}
	}
	return w.Phases[idx], nil
}

// Complete reports whether every phase is approved.
func (w Workflow) Complete() bool {
	return len(w.Phases) > 0 && w.frontier() >= len(w.Phases)
}

// Started reports whether any phase has left pending.
func (w Workflow) Started() bool {
	for _, phase := range w.Phases {
		if phase.Status != StatusPending {
			return true
		}
	}
	return false
}

// Summary projects phase statuses; it has no side effects.
func (w Workflow) Summary() Summary {
	summary := make(Summary, len(w.Phases))
	for _, phase := range w.Phases {
		summary[phase.Name] = phase.Status
	}
	return summary
}

// Validate checks the structural invariants: fixed phase order, approved
// prefix, a single active phase, pending suffix, and completion timestamps
// only on approved phases.
func (w Workflow) Validate() error {
	if len(w.Phases) != PhaseCount {
		return fmt.Errorf("workflow %s: expected %d phases, got %d", w.EpisodeID, PhaseCount, len(w.Phases))
	}
	for i, phase := range w.Phases {
		if phase.Name != phaseOrder[i] {
			return fmt.Errorf("workflow %s: phase %d is %q, expected %q", w.EpisodeID, i+1, phase.Name, phaseOrder[i])
		}
		if (phase.Status == StatusApproved) != (phase.CompletedAt != nil) {
			return fmt.Errorf("workflow %s: phase %s has status %s with completed_at=%v", w.EpisodeID, phase.Name, phase.Status, phase.CompletedAt != nil)
		}
	}

	idx := w.frontier()
	if idx >= len(w.Phases) {
		if w.Current != "" {
			return fmt.Errorf("workflow %s: complete but current phase is %s", w.EpisodeID, w.Current)
		}
		return nil
	}

	head := w.Phases[idx]
	switch {
	case head.Status.IsActive():
		if w.Current != head.Name {
			return fmt.Errorf("workflow %s: current phase %q does not match active phase %s", w.EpisodeID, w.Current, head.Name)
		}
	case head.Status == StatusPending:
		if idx != 0 {
			return fmt.Errorf("workflow %s: %s approved but %s never started", w.EpisodeID, w.Phases[idx-1].Name, head.Name)
		}
		if w.Current != "" {
			return fmt.Errorf("workflow %s: not started but current phase is %s", w.EpisodeID, w.Current)
		}
	default:
		return fmt.Errorf("workflow %s: unexpected status %q on %s", w.EpisodeID, head.Status, head.Name)
	}

	for _, phase := range w.Phases[idx+1:] {
		if phase.Status != StatusPending {
			return fmt.Errorf("workflow %s: %s is %s ahead of active phase %s", w.EpisodeID, phase.Name, phase.Status, head.Name)
		}
	}
	return nil
}

// frontier returns the index of the first phase that is not approved, or
// len(Phases) when every phase is approved.
func (w Workflow) frontier() int {
	for i, phase := range w.Phases {
		if phase.Status != StatusApproved {
			return i
		}
	}
	return len(w.Phases)
}

// IsValidationError reports whether err is one of the workflow validation
// failures rather than an infrastructure error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidPhase) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrNoActivePhase)
}
