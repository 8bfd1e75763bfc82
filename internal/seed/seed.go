// Package seed loads the Apollo 11 sample project used for demos and local
// testing.
package seed

import (
	"context"
	"fmt"

	"docflow/internal/store"
	"docflow/internal/workflow"
)

// Projects is the subset of the store seed needs.
type Projects interface {
	CountProjects(ctx context.Context) (int, error)
	ListProjects(ctx context.Context) ([]*store.Project, error)
	CreateProject(ctx context.Context, p store.Project) (*store.Project, error)
}

// Episodes creates episodes together with their workflows; the engine
// satisfies it.
type Episodes interface {
	CreateEpisode(ctx context.Context, ep store.Episode) (*store.Episode, workflow.Workflow, error)
}

// Result describes what Load did.
type Result struct {
	ProjectID string `json:"projectId"`
	Created   bool   `json:"created"`
	Episodes  int    `json:"episodes"`
}

var sampleProject = store.Project{
	Title:       "Apollo 11: Journey to the Moon",
	Description: "A comprehensive documentary series exploring the historic first moon landing",
	Status:      store.DefaultProjectStatus,
}

var sampleEpisodes = []store.Episode{
	{Title: "Episode 1: The Race Begins", Description: "Cold War context and the space race", Duration: "45 min"},
	{Title: "Episode 2: Preparation", Description: "Training and technical development", Duration: "45 min"},
	{Title: "Episode 3: Launch", Description: "The Saturn V launch and journey to the moon", Duration: "45 min"},
	{Title: "Episode 4: One Small Step", Description: "The lunar landing and moonwalk", Duration: "45 min"},
}

// Load creates the sample project and its episodes. It is a no-op when any
// project already exists, in which case the first listed project is reported.
func Load(ctx context.Context, projects Projects, episodes Episodes) (Result, error) {
	count, err := projects.CountProjects(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count projects: %w", err)
	}
	if count > 0 {
		existing, err := projects.ListProjects(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list projects: %w", err)
		}
		result := Result{}
		if len(existing) > 0 {
			result.ProjectID = existing[0].ID
		}
		return result, nil
	}

	project, err := projects.CreateProject(ctx, sampleProject)
	if err != nil {
		return Result{}, fmt.Errorf("create sample project: %w", err)
	}
	result := Result{ProjectID: project.ID, Created: true}
	for _, ep := range sampleEpisodes {
		ep.ProjectID = project.ID
		if _, _, err := episodes.CreateEpisode(ctx, ep); err != nil {
			return result, fmt.Errorf("create sample episode %q: %w", ep.Title, err)
		}
		result.Episodes++
	}
	return result, nil
}
