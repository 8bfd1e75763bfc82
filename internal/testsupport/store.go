package testsupport

import (
	"context"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewProject creates a project for tests.
func NewProject(t testing.TB, st *store.Store, title string) *store.Project {
	t.Helper()

	project, err := st.CreateProject(context.Background(), store.Project{Title: title})
	if err != nil {
		t.Fatalf("store.CreateProject: %v", err)
	}
	return project
}

// NewEpisode creates an episode with a started workflow directly through the
// store, bypassing the engine.
func NewEpisode(t testing.TB, st *store.Store, projectID, title string) (*store.Episode, workflow.Workflow) {
	t.Helper()

	ep, wf, err := st.CreateEpisode(context.Background(),
		store.Episode{ProjectID: projectID, Title: title},
		workflow.New("", time.Now()), nil)
	if err != nil {
		t.Fatalf("store.CreateEpisode: %v", err)
	}
	return ep, wf
}
