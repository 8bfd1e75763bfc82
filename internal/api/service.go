package api

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"docflow/internal/report"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// Store abstracts the record persistence the API needs.
type Store interface {
	CreateProject(ctx context.Context, p store.Project) (*store.Project, error)
	GetProject(ctx context.Context, id string) (*store.Project, error)
	ListProjects(ctx context.Context) ([]*store.Project, error)
	UpdateProject(ctx context.Context, p store.Project) (*store.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetEpisode(ctx context.Context, id string) (*store.Episode, error)
	ListEpisodes(ctx context.Context, projectID string) ([]*store.Episode, error)
	UpdateEpisode(ctx context.Context, ep store.Episode) (*store.Episode, error)
	DeleteEpisode(ctx context.Context, id string) error
	ListWorkflows(ctx context.Context) ([]store.EpisodeWorkflow, error)
}

// Engine abstracts the workflow engine.
type Engine interface {
	CreateEpisode(ctx context.Context, ep store.Episode) (*store.Episode, workflow.Workflow, error)
	Advance(ctx context.Context, episodeID string, phase workflow.PhaseName, status workflow.Status, notes string) (workflow.Workflow, error)
	Workflow(ctx context.Context, episodeID string) (workflow.Workflow, error)
	History(ctx context.Context, episodeID string) ([]store.Transition, error)
}

const kindBadRequest = "bad_request"

// RequestError reports a malformed or incomplete request.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ErrorKind distinguishes malformed input from workflow rule violations.
func (e *RequestError) ErrorKind() string { return kindBadRequest }

// Service exposes docflow operations returning API DTOs.
type Service struct {
	store    Store
	engine   Engine
	policy   report.Policy
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(st Store, eng Engine, policy report.Policy) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		store:    st,
		engine:   eng,
		policy:   policy,
		validate: validate,
		now:      time.Now,
	}
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return FromProjects(projects), nil
}

// CreateProject validates and stores a project.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (Project, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.check(req); err != nil {
		return Project{}, err
	}
	project, err := s.store.CreateProject(ctx, store.Project{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Status:      strings.TrimSpace(req.Status),
	})
	if err != nil {
		return Project{}, err
	}
	return FromProject(project), nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return FromProject(project), nil
}

// UpdateProject applies the provided fields. Omitted fields keep their
// stored values.
func (s *Service) UpdateProject(ctx context.Context, id string, req UpdateProjectRequest) (Project, error) {
	if err := s.check(req); err != nil {
		return Project{}, err
	}
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return Project{}, &RequestError{Message: "title: must not be blank"}
		}
		project.Title = title
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if status == "" {
			return Project{}, &RequestError{Message: "status: must not be blank"}
		}
		project.Status = status
	}
	updated, err := s.store.UpdateProject(ctx, *project)
	if err != nil {
		return Project{}, err
	}
	return FromProject(updated), nil
}

// DeleteProject removes a project and its episodes.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}

// ListEpisodes returns the episodes of a project.
func (s *Service) ListEpisodes(ctx context.Context, projectID string) ([]Episode, error) {
	episodes, err := s.store.ListEpisodes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return FromEpisodes(episodes), nil
}

// CreateEpisode validates the request and creates the episode through the
// engine so its workflow starts in the configured state.
func (s *Service) CreateEpisode(ctx context.Context, req CreateEpisodeRequest) (EpisodeDetail, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if err := s.check(req); err != nil {
		return EpisodeDetail{}, err
	}
	ep, wf, err := s.engine.CreateEpisode(ctx, store.Episode{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Duration:    strings.TrimSpace(req.Duration),
	})
	if err != nil {
		return EpisodeDetail{}, err
	}
	return EpisodeDetail{Episode: FromEpisode(ep), Workflow: FromWorkflow(wf)}, nil
}

// GetEpisode returns an episode with its workflow.
func (s *Service) GetEpisode(ctx context.Context, id string) (EpisodeDetail, error) {
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return EpisodeDetail{}, err
	}
	wf, err := s.engine.Workflow(ctx, id)
	if err != nil {
		return EpisodeDetail{}, err
	}
	return EpisodeDetail{Episode: FromEpisode(ep), Workflow: FromWorkflow(wf)}, nil
}

// UpdateEpisode applies the provided descriptive fields.
func (s *Service) UpdateEpisode(ctx context.Context, id string, req UpdateEpisodeRequest) (Episode, error) {
	if err := s.check(req); err != nil {
		return Episode{}, err
	}
	ep, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return Episode{}, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return Episode{}, &RequestError{Message: "title: must not be blank"}
		}
		ep.Title = title
	}
	if req.Description != nil {
		ep.Description = strings.TrimSpace(*req.Description)
	}
	if req.Duration != nil {
		ep.Duration = strings.TrimSpace(*req.Duration)
	}
	updated, err := s.store.UpdateEpisode(ctx, *ep)
	if err != nil {
		return Episode{}, err
	}
	return FromEpisode(updated), nil
}

// DeleteEpisode removes an episode and its workflow.
func (s *Service) DeleteEpisode(ctx context.Context, id string) error {
	return s.store.DeleteEpisode(ctx, id)
}

// Workflow returns the workflow of an episode.
func (s *Service) Workflow(ctx context.Context, episodeID string) (Workflow, error) {
	wf, err := s.engine.Workflow(ctx, episodeID)
	if err != nil {
		return Workflow{}, err
	}
	return FromWorkflow(wf), nil
}

// Advance moves a phase to a new status. Phase and status strings are
// passed through so unknown values surface as workflow errors.
func (s *Service) Advance(ctx context.Context, episodeID string, req AdvanceRequest) (Workflow, error) {
	if err := s.check(req); err != nil {
		return Workflow{}, err
	}
	phase := workflow.PhaseName(strings.TrimSpace(req.Phase))
	if parsed, ok := workflow.ParsePhase(req.Phase); ok {
		phase = parsed
	}
	status := workflow.Status(strings.TrimSpace(req.Status))
	if parsed, ok := workflow.ParseStatus(req.Status); ok {
		status = parsed
	}
	wf, err := s.engine.Advance(ctx, episodeID, phase, status, strings.TrimSpace(req.Notes))
	if err != nil {
		return Workflow{}, err
	}
	return FromWorkflow(wf), nil
}

// History returns the transitions of an episode.
func (s *Service) History(ctx context.Context, episodeID string) ([]Transition, error) {
	history, err := s.engine.History(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return FromTransitions(history), nil
}

// Report builds the dashboard.
func (s *Service) Report(ctx context.Context) (Report, error) {
	board, err := report.Generate(ctx, s.store, s.policy, s.now())
	if err != nil {
		return Report{}, err
	}
	return FromBoard(board), nil
}

func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Message: err.Error()}
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, describeFieldError(fe))
	}
	return &RequestError{Message: strings.Join(parts, "; ")}
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", field, fe.Tag())
	}
}

