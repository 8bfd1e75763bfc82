// Package export writes a delivery manifest for each completed episode.
//
// The packager subscribes to WorkflowCompleted events and records the
// episode, its project, and the phase timeline in
// <export_dir>/<episode-id>/manifest.yaml. It does not move media; the
// manifest is the hand-off point for downstream delivery tooling.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docflow/internal/logging"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// ManifestName is the file written inside each episode export directory.
const ManifestName = "manifest.yaml"

// Source supplies the records a manifest is built from.
type Source interface {
	GetEpisode(ctx context.Context, id string) (*store.Episode, error)
	GetProject(ctx context.Context, id string) (*store.Project, error)
	LoadWorkflow(ctx context.Context, episodeID string) (workflow.Workflow, error)
	History(ctx context.Context, episodeID string) ([]store.Transition, error)
}

// Manifest is the YAML document describing a delivered episode.
type Manifest struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Project     ProjectInfo     `yaml:"project"`
	Episode     EpisodeInfo     `yaml:"episode"`
	Phases      []PhaseEntry    `yaml:"phases"`
	History     []TimelineEntry `yaml:"history,omitempty"`
}

type ProjectInfo struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Status string `yaml:"status,omitempty"`
}

type EpisodeInfo struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Duration    string `yaml:"duration,omitempty"`
}

type PhaseEntry struct {
	Position    int        `yaml:"position"`
	Name        string     `yaml:"name"`
	Status      string     `yaml:"status"`
	StartedAt   *time.Time `yaml:"started_at,omitempty"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	ReviewNotes string     `yaml:"review_notes,omitempty"`
}

type TimelineEntry struct {
	At    time.Time `yaml:"at"`
	Phase string    `yaml:"phase"`
	From  string    `yaml:"from"`
	To    string    `yaml:"to"`
	Notes string    `yaml:"notes,omitempty"`
}

// Packager builds and writes manifests.
type Packager struct {
	dir    string
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// NewPackager constructs a packager writing beneath dir.
func NewPackager(dir string, source Source, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Packager{
		dir:    dir,
		source: source,
		logger: logging.NewComponentLogger(logger, "export"),
		now:    time.Now,
	}
}

// Handle is the event bus entry point; it ignores everything except
// WorkflowCompleted.
func (p *Packager) Handle(ctx context.Context, event workflow.Event) error {
	if event.Kind != workflow.EventWorkflowCompleted {
		return nil
	}
	_, err := p.Write(ctx, event.EpisodeID)
	return err
}

// Build assembles the manifest for a completed episode.
func (p *Packager) Build(ctx context.Context, episodeID string) (Manifest, error) {
	ep, err := p.source.GetEpisode(ctx, episodeID)
	if err != nil {
		return Manifest{}, fmt.Errorf("load episode: %w", err)
	}
	wf, err := p.source.LoadWorkflow(ctx, episodeID)
	if err != nil {
		return Manifest{}, fmt.Errorf("load workflow: %w", err)
	}
	if !wf.Complete() {
		return Manifest{}, &workflow.NoActivePhaseError{EpisodeID: episodeID}
	}
	project, err := p.source.GetProject(ctx, ep.ProjectID)
	if err != nil {
		return Manifest{}, fmt.Errorf("load project: %w", err)
	}
	history, err := p.source.History(ctx, episodeID)
	if err != nil {
		return Manifest{}, fmt.Errorf("load history: %w", err)
	}

	manifest := Manifest{
		GeneratedAt: p.now().UTC(),
		Project:     ProjectInfo{ID: project.ID, Title: project.Title, Status: project.Status},
		Episode: EpisodeInfo{
			ID:          ep.ID,
			Title:       ep.Title,
			Description: ep.Description,
			Duration:    ep.Duration,
		},
		Phases: make([]PhaseEntry, 0, len(wf.Phases)),
	}
	for _, phase := range wf.Phases {
		manifest.Phases = append(manifest.Phases, PhaseEntry{
			Position:    phase.Name.Position(),
			Name:        string(phase.Name),
			Status:      string(phase.Status),
			StartedAt:   phase.StartedAt,
			CompletedAt: phase.CompletedAt,
			ReviewNotes: phase.ReviewNotes,
		})
	}
	for _, tr := range history {
		manifest.History = append(manifest.History, TimelineEntry{
			At:    tr.At,
			Phase: string(tr.Phase),
			From:  string(tr.From),
			To:    string(tr.To),
			Notes: tr.Notes,
		})
	}
	return manifest, nil
}

// Write builds the manifest and writes it atomically. It returns the path
// of the manifest file.
func (p *Packager) Write(ctx context.Context, episodeID string) (string, error) {
	manifest, err := p.Build(ctx, episodeID)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	target := filepath.Join(p.dir, episodeID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(target, ManifestName)
	tmp, err := os.CreateTemp(target, ".manifest-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publish manifest: %w", err)
	}

	p.logger.Info("episode manifest written",
		logging.String(logging.FieldEpisodeID, episodeID),
		logging.String("manifest", path),
		logging.Int("transitions", len(manifest.History)),
	)
	return path, nil
}
