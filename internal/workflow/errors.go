package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhase      = errors.New("invalid phase")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrNoActivePhase     = errors.New("no active phase")
)

// InvalidPhaseError reports an advance request that targets a phase other
// than the active one.
type InvalidPhaseError struct {
	Phase  PhaseName
	Active PhaseName
}

func (e *InvalidPhaseError) Error() string {
	switch {
	case e.Phase.Position() == 0:
		return fmt.Sprintf("invalid phase: unknown phase %q", e.Phase)
	case e.Active == "":
		return fmt.Sprintf("invalid phase: %s is not active (workflow complete)", e.Phase)
	default:
		return fmt.Sprintf("invalid phase: %s is not active (active phase is %s)", e.Phase, e.Active)
	}
}

func (e *InvalidPhaseError) Is(target error) bool { return target == ErrInvalidPhase }

// ErrorKind classifies the failure as caller input.
func (e *InvalidPhaseError) ErrorKind() string { return "validation" }

// IllegalTransitionError reports a status change the transition table does
// not allow.
type IllegalTransitionError struct {
	Phase PhaseName
	From  Status
	To    Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s cannot move from %s to %s", e.Phase, e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// ErrorKind classifies the failure as caller input.
func (e *IllegalTransitionError) ErrorKind() string { return "validation" }

// NoActivePhaseError reports a workflow with nothing in flight: either every
// phase is approved or the workflow has not started.
type NoActivePhaseError struct {
	EpisodeID string
	Complete  bool
}

func (e *NoActivePhaseError) Error() string {
	if e.Complete {
		return fmt.Sprintf("no active phase: episode %s workflow is complete", e.EpisodeID)
	}
	return fmt.Sprintf("no active phase: episode %s workflow has not started", e.EpisodeID)
}

func (e *NoActivePhaseError) Is(target error) bool { return target == ErrNoActivePhase }

// ErrorKind classifies the failure as caller input.
func (e *NoActivePhaseError) ErrorKind() string { return "validation" }
