// Package report projects stored workflows into dashboard views.
//
// Board counts episodes by phase and status and lists reviews and revisions
// that have exceeded their SLA. Monitor evaluates the same overdue rules on
// an interval and raises one notification per overdue phase entry. Nothing
// here mutates workflow state.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"docflow/internal/config"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// Lister returns every episode with its workflow snapshot.
type Lister interface {
	ListWorkflows(ctx context.Context) ([]store.EpisodeWorkflow, error)
}

// Policy holds the SLA windows. A zero window disables that check.
type Policy struct {
	ReviewSLA   time.Duration
	RevisionSLA time.Duration
}

// PolicyFromConfig reads the [review] section.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{ReviewSLA: cfg.ReviewSLA(), RevisionSLA: cfg.RevisionSLA()}
}

// PhaseCounts tallies episodes by status for one phase.
type PhaseCounts struct {
	Phase  workflow.PhaseName
	Counts map[workflow.Status]int
}

// Overdue describes a phase that has sat in review or rejection too long.
type Overdue struct {
	EpisodeID    string
	EpisodeTitle string
	Phase        workflow.PhaseName
	Status       workflow.Status
	Since        time.Time
	Age          time.Duration
	SLA          time.Duration
}

// Key identifies one overdue phase entry. A new review round produces a new
// key because Since changes.
func (o Overdue) Key() string {
	return fmt.Sprintf("%s/%s/%s/%d", o.EpisodeID, o.Phase, o.Status, o.Since.UnixNano())
}

// Board is the dashboard snapshot.
type Board struct {
	GeneratedAt time.Time
	Episodes    int
	Completed   int
	NotStarted  int
	Phases      []PhaseCounts
	Overdue     []Overdue
}

// Generate loads every workflow and builds the board.
func Generate(ctx context.Context, lister Lister, policy Policy, now time.Time) (Board, error) {
	entries, err := lister.ListWorkflows(ctx)
	if err != nil {
		return Board{}, fmt.Errorf("list workflows: %w", err)
	}
	return Build(entries, policy, now), nil
}

// Build computes the board from in-memory snapshots.
func Build(entries []store.EpisodeWorkflow, policy Policy, now time.Time) Board {
	board := Board{
		GeneratedAt: now.UTC(),
		Episodes:    len(entries),
		Phases:      make([]PhaseCounts, 0, workflow.PhaseCount),
	}
	index := make(map[workflow.PhaseName]int, workflow.PhaseCount)
	for i, name := range workflow.PhaseNames() {
		counts := make(map[workflow.Status]int, len(workflow.AllStatuses()))
		for _, status := range workflow.AllStatuses() {
			counts[status] = 0
		}
		board.Phases = append(board.Phases, PhaseCounts{Phase: name, Counts: counts})
		index[name] = i
	}

	for _, entry := range entries {
		wf := entry.Workflow
		switch {
		case wf.Complete():
			board.Completed++
		case !wf.Started():
			board.NotStarted++
		}
		for _, phase := range wf.Phases {
			if i, ok := index[phase.Name]; ok {
				board.Phases[i].Counts[phase.Status]++
			}
		}
	}
	board.Overdue = FindOverdue(entries, policy, now)
	return board
}

// FindOverdue returns phases in review longer than ReviewSLA and rejected
// phases awaiting revision longer than RevisionSLA, oldest first.
func FindOverdue(entries []store.EpisodeWorkflow, policy Policy, now time.Time) []Overdue {
	var overdue []Overdue
	for _, entry := range entries {
		phase, err := entry.Workflow.CurrentPhase()
		if err != nil {
			continue
		}
		var sla time.Duration
		switch phase.Status {
		case workflow.StatusReview:
			sla = policy.ReviewSLA
		case workflow.StatusRejected:
			sla = policy.RevisionSLA
		default:
			continue
		}
		if sla <= 0 || phase.UpdatedAt.IsZero() {
			continue
		}
		age := now.Sub(phase.UpdatedAt)
		if age <= sla {
			continue
		}
		overdue = append(overdue, Overdue{
			EpisodeID:    entry.Episode.ID,
			EpisodeTitle: entry.Episode.Title,
			Phase:        phase.Name,
			Status:       phase.Status,
			Since:        phase.UpdatedAt,
			Age:          age,
			SLA:          sla,
		})
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].Since.Before(overdue[j].Since)
	})
	return overdue
}

// FormatAge renders a duration as whole hours, or minutes below an hour.
func FormatAge(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}
