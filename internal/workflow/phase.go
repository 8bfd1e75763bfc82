package workflow

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PhaseName identifies one of the fixed production phases.
type PhaseName string

const (
	PhaseResearch  PhaseName = "research"
	PhaseArchive   PhaseName = "archive"
	PhaseScript    PhaseName = "script"
	PhaseVoiceover PhaseName = "voiceover"
	PhaseAssembly  PhaseName = "assembly"
)

// phaseOrder is the fixed execution order. Index = position - 1.
var phaseOrder = [...]PhaseName{
	PhaseResearch,
	PhaseArchive,
	PhaseScript,
	PhaseVoiceover,
	PhaseAssembly,
}

// PhaseCount is the number of phases in every workflow.
const PhaseCount = len(phaseOrder)

// Status represents the lifecycle of a single phase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusReview,
	StatusApproved,
	StatusRejected,
}

// legalTransitions lists the reachable targets for each status.
var legalTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusReview},
	StatusReview:     {StatusApproved, StatusRejected},
	StatusRejected:   {StatusInProgress},
}

// Phase captures the state of one phase within a workflow.
type Phase struct {
	Name        PhaseName
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
	ReviewNotes string
	UpdatedAt   time.Time
}

// PhaseNames returns the phase identifiers in execution order.
func PhaseNames() []PhaseName {
	names := make([]PhaseName, len(phaseOrder))
	copy(names, phaseOrder[:])
	return names
}

// AllStatuses returns the known phase statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParsePhase converts a string into a known PhaseName.
func ParsePhase(value string) (PhaseName, bool) {
	normalized := PhaseName(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := phaseIndex(normalized); !ok {
		return "", false
	}
	return normalized, true
}

// ParseStatus converts a string into a known Status. Hyphens are accepted in
// place of underscores so "in-progress" works from the command line.
func ParseStatus(value string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, status := range allStatuses {
		if string(status) == normalized {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is a legal phase transition.
func CanTransition(from, to Status) bool {
	for _, target := range legalTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Position returns the 1-based position of the phase, or 0 when unknown.
func (p PhaseName) Position() int {
	idx, ok := phaseIndex(p)
	if !ok {
		return 0
	}
	return idx + 1
}

// Label returns the title-cased display name ("Voiceover").
func (p PhaseName) Label() string {
	return cases.Title(language.English).String(string(p))
}

// Label returns the human-friendly status ("In Progress").
func (s Status) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// IsActive reports whether the status marks the phase as the active one.
func (s Status) IsActive() bool {
	switch s {
	case StatusInProgress, StatusReview, StatusRejected:
		return true
	default:
		return false
	}
}

func phaseIndex(name PhaseName) (int, bool) {
	for i, candidate := range phaseOrder {
		if candidate == name {
			return i, true
		}
	}
	return 0, false
}
