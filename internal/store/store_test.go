package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"docflow/internal/store"
	"docflow/internal/testsupport"
	"docflow/internal/workflow"
)

func approveCurrent(t *testing.T, st *store.Store, episodeID string, phase workflow.PhaseName) workflow.Workflow {
	t.Helper()
	ctx := context.Background()
	for _, to := range []workflow.Status{workflow.StatusReview, workflow.StatusApproved} {
		wf, _, err := st.UpdateWorkflow(ctx, episodeID, func(current workflow.Workflow) (workflow.Workflow, []workflow.Event, error) {
			return current.Advance(phase, to, "", time.Now())
		})
		if err != nil {
			t.Fatalf("advance %s to %s: %v", phase, to, err)
		}
		if to == workflow.StatusApproved {
			return wf
		}
	}
	return workflow.Workflow{}
}

func TestOpenCreatesSchemaOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewProject(t, st, "Apollo")
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	count, err := reopened.CountProjects(context.Background())
	if err != nil {
		t.Fatalf("CountProjects: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected project to survive reopen, got %d", count)
	}
}

func TestCreateEpisodePersistsWorkflow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	project := testsupport.NewProject(t, st, "Apollo 11")
	ep, wf := testsupport.NewEpisode(t, st, project.ID, "The Race Begins")
	if ep.ID == "" || wf.EpisodeID != ep.ID {
		t.Fatalf("expected assigned id shared with workflow, got %q / %q", ep.ID, wf.EpisodeID)
	}

	loaded, err := st.LoadWorkflow(ctx, ep.ID)
	if err != nil {
		t.Fatalf("LoadWorkflow: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Fatalf("loaded workflow invalid: %v", err)
	}
	if loaded.Current != workflow.PhaseResearch || loaded.Version != 1 {
		t.Fatalf("unexpected loaded workflow: current=%s version=%d", loaded.Current, loaded.Version)
	}
	research, _ := loaded.Phase(workflow.PhaseResearch)
	if research.Status != workflow.StatusInProgress || research.StartedAt == nil {
		t.Fatalf("expected research in progress with start time, got %+v", research)
	}
	for _, phase := range loaded.Phases[1:] {
		if phase.Status != workflow.StatusPending || phase.StartedAt != nil {
			t.Fatalf("expected %s pending, got %+v", phase.Name, phase)
		}
	}
}

func TestCreateEpisodeUnknownProject(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, _, err := st.CreateEpisode(context.Background(),
		store.Episode{ProjectID: "missing", Title: "Orphan"},
		workflow.New("", time.Now()), nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	episodes, err := st.ListEpisodes(context.Background(), "")
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 0 {
		t.Fatalf("expected no partial episode rows, got %d", len(episodes))
	}
}

func TestUpdateWorkflowRecordsTransitions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Apollo 11")
	ep, _ := testsupport.NewEpisode(t, st, project.ID, "Preparation")

	wf := approveCurrent(t, st, ep.ID, workflow.PhaseResearch)
	if wf.Current != workflow.PhaseArchive || wf.Version != 3 {
		t.Fatalf("expected archive active at version 3, got %s at %d", wf.Current, wf.Version)
	}

	loaded, err := st.LoadWorkflow(ctx, ep.ID)
	if err != nil {
		t.Fatalf("LoadWorkflow: %v", err)
	}
	research, _ := loaded.Phase(workflow.PhaseResearch)
	if research.Status != workflow.StatusApproved || research.CompletedAt == nil {
		t.Fatalf("expected research approved with completion time, got %+v", research)
	}
	archive, _ := loaded.Phase(workflow.PhaseArchive)
	if archive.Status != workflow.StatusInProgress || archive.StartedAt == nil {
		t.Fatalf("expected archive started, got %+v", archive)
	}

	history, err := st.History(ctx, ep.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []struct {
		phase    workflow.PhaseName
		from, to workflow.Status
	}{
		{workflow.PhaseResearch, workflow.StatusInProgress, workflow.StatusReview},
		{workflow.PhaseResearch, workflow.StatusReview, workflow.StatusApproved},
		{workflow.PhaseArchive, workflow.StatusPending, workflow.StatusInProgress},
	}
	if len(history) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(history))
	}
	for i, w := range want {
		if history[i].Phase != w.phase || history[i].From != w.from || history[i].To != w.to {
			t.Fatalf("transition %d = %+v, want %+v", i, history[i], w)
		}
	}
}

func TestUpdateWorkflowTransformErrorLeavesStateUnchanged(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Apollo 11")
	ep, before := testsupport.NewEpisode(t, st, project.ID, "Launch")

	_, _, err := st.UpdateWorkflow(ctx, ep.ID, func(current workflow.Workflow) (workflow.Workflow, []workflow.Event, error) {
		return current.Advance(workflow.PhaseScript, workflow.StatusReview, "", time.Now())
	})
	if !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}

	after, err := st.LoadWorkflow(ctx, ep.ID)
	if err != nil {
		t.Fatalf("LoadWorkflow: %v", err)
	}
	if after.Version != before.Version || after.Current != before.Current {
		t.Fatalf("expected unchanged workflow, got version %d current %s", after.Version, after.Current)
	}
}

func TestUpdateWorkflowUnknownEpisode(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, _, err := st.UpdateWorkflow(context.Background(), "missing", func(current workflow.Workflow) (workflow.Workflow, []workflow.Event, error) {
		t.Fatal("transform must not run for unknown episode")
		return current, nil, nil
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Apollo 11")
	ep, _ := testsupport.NewEpisode(t, st, project.ID, "The Race Begins")
	approveCurrent(t, st, ep.ID, workflow.PhaseResearch)

	if err := st.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := st.GetEpisode(ctx, ep.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected episode gone, got %v", err)
	}
	if _, err := st.LoadWorkflow(ctx, ep.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected workflow gone, got %v", err)
	}
	if err := st.DeleteProject(ctx, project.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Apollo 11")

	updated, err := st.UpdateProject(ctx, store.Project{ID: project.ID, Title: "  Apollo 11: Journey  ", Description: "Moon landing", Status: "Complete"})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Title != "Apollo 11: Journey" || updated.Status != "Complete" || updated.Description != "Moon landing" {
		t.Fatalf("unexpected updated project %+v", updated)
	}
	if !updated.CreatedAt.Equal(project.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", project.CreatedAt, updated.CreatedAt)
	}

	if _, err := st.UpdateProject(ctx, store.Project{ID: project.ID, Title: " "}); err == nil {
		t.Fatal("expected blank title to be rejected")
	}
	if _, err := st.UpdateProject(ctx, store.Project{ID: "missing", Title: "Gemini"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEpisodeCRUD(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Apollo 11")
	other := testsupport.NewProject(t, st, "Gemini")
	ep, _ := testsupport.NewEpisode(t, st, project.ID, "Draft title")
	testsupport.NewEpisode(t, st, other.ID, "Elsewhere")

	updated, err := st.UpdateEpisode(ctx, store.Episode{ID: ep.ID, Title: "Preparation", Duration: "45 min"})
	if err != nil {
		t.Fatalf("UpdateEpisode: %v", err)
	}
	if updated.Title != "Preparation" || updated.Duration != "45 min" || updated.ProjectID != project.ID {
		t.Fatalf("unexpected updated episode %+v", updated)
	}

	episodes, err := st.ListEpisodes(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 1 || episodes[0].ID != ep.ID {
		t.Fatalf("expected only project episode, got %+v", episodes)
	}
	if _, err := st.ListEpisodes(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown project, got %v", err)
	}

	all, err := st.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 workflows, got %d", len(all))
	}
	for _, item := range all {
		if err := item.Workflow.Validate(); err != nil {
			t.Fatalf("listed workflow invalid: %v", err)
		}
	}

	if err := st.DeleteEpisode(ctx, ep.ID); err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}
	if _, err := st.History(ctx, ep.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected history lookup to fail after delete, got %v", err)
	}
}
