package store

import (
	"time"

	"docflow/internal/workflow"
)

// Project groups the episodes of one documentary series.
type Project struct {
	ID          string
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Episode is one production unit; it owns exactly one workflow.
type Episode struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Duration    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition is one recorded phase status change.
type Transition struct {
	ID        int64
	EpisodeID string
	Phase     workflow.PhaseName
	From      workflow.Status
	To        workflow.Status
	Notes     string
	At        time.Time
}

// EpisodeWorkflow pairs an episode with its workflow snapshot for listings.
type EpisodeWorkflow struct {
	Episode  Episode
	Workflow workflow.Workflow
}

// DefaultProjectStatus is assigned to projects created without a status.
const DefaultProjectStatus = "In Production"
