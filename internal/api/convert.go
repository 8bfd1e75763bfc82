package api

import (
	"time"

	"docflow/internal/report"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// FromProject converts a stored project.
func FromProject(p *store.Project) Project {
	if p == nil {
		return Project{}
	}
	return Project{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// FromProjects converts a slice of projects, never returning nil.
func FromProjects(projects []*store.Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, FromProject(p))
	}
	return out
}

// FromEpisode converts a stored episode.
func FromEpisode(ep *store.Episode) Episode {
	if ep == nil {
		return Episode{}
	}
	return Episode{
		ID:          ep.ID,
		ProjectID:   ep.ProjectID,
		Title:       ep.Title,
		Description: ep.Description,
		Duration:    ep.Duration,
		CreatedAt:   formatTime(ep.CreatedAt),
		UpdatedAt:   formatTime(ep.UpdatedAt),
	}
}

// FromEpisodes converts a slice of episodes, never returning nil.
func FromEpisodes(episodes []*store.Episode) []Episode {
	out := make([]Episode, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, FromEpisode(ep))
	}
	return out
}

// FromWorkflow converts a workflow snapshot.
func FromWorkflow(wf workflow.Workflow) Workflow {
	dto := Workflow{
		EpisodeID:    wf.EpisodeID,
		CurrentPhase: string(wf.Current),
		Complete:     wf.Complete(),
		Version:      wf.Version,
		Phases:       make([]Phase, 0, len(wf.Phases)),
		Summary:      make(map[string]string, len(wf.Phases)),
		UpdatedAt:    formatTime(wf.UpdatedAt),
	}
	for _, phase := range wf.Phases {
		dto.Phases = append(dto.Phases, FromPhase(phase))
	}
	for name, status := range wf.Summary() {
		dto.Summary[string(name)] = string(status)
	}
	return dto
}

// FromPhase converts one phase.
func FromPhase(phase workflow.Phase) Phase {
	return Phase{
		Name:        string(phase.Name),
		Label:       phase.Name.Label(),
		Position:    phase.Name.Position(),
		Status:      string(phase.Status),
		StartedAt:   formatTimePtr(phase.StartedAt),
		CompletedAt: formatTimePtr(phase.CompletedAt),
		ReviewNotes: phase.ReviewNotes,
		UpdatedAt:   formatTime(phase.UpdatedAt),
	}
}

// FromTransitions converts history rows, never returning nil.
func FromTransitions(history []store.Transition) []Transition {
	out := make([]Transition, 0, len(history))
	for _, tr := range history {
		out = append(out, Transition{
			ID:    tr.ID,
			Phase: string(tr.Phase),
			From:  string(tr.From),
			To:    string(tr.To),
			Notes: tr.Notes,
			At:    formatTime(tr.At),
		})
	}
	return out
}

// FromBoard converts a report board.
func FromBoard(board report.Board) Report {
	dto := Report{
		GeneratedAt: formatTime(board.GeneratedAt),
		Episodes:    board.Episodes,
		Completed:   board.Completed,
		NotStarted:  board.NotStarted,
		Phases:      make([]PhaseCounts, 0, len(board.Phases)),
		Overdue:     make([]OverdueEntry, 0, len(board.Overdue)),
	}
	for _, pc := range board.Phases {
		counts := make(map[string]int, len(pc.Counts))
		for status, n := range pc.Counts {
			counts[string(status)] = n
		}
		dto.Phases = append(dto.Phases, PhaseCounts{Phase: string(pc.Phase), Counts: counts})
	}
	for _, item := range board.Overdue {
		dto.Overdue = append(dto.Overdue, OverdueEntry{
			EpisodeID:    item.EpisodeID,
			EpisodeTitle: item.EpisodeTitle,
			Phase:        string(item.Phase),
			Status:       string(item.Status),
			Since:        formatTime(item.Since),
			AgeHours:     roundHours(item.Age),
			SLAHours:     roundHours(item.SLA),
		})
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func roundHours(d time.Duration) float64 {
	return float64(d.Round(time.Minute)/time.Minute) / 60
}
