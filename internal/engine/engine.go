package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docflow/internal/config"
	"docflow/internal/logging"
	"docflow/internal/services"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

const defaultRetryAttempts = 3

// Repository is the persistence the engine needs.
type Repository interface {
	CreateEpisode(ctx context.Context, ep store.Episode, wf workflow.Workflow, history []workflow.Event) (*store.Episode, workflow.Workflow, error)
	LoadWorkflow(ctx context.Context, episodeID string) (workflow.Workflow, error)
	UpdateWorkflow(ctx context.Context, episodeID string, fn store.TransformFunc) (workflow.Workflow, []workflow.Event, error)
	History(ctx context.Context, episodeID string) ([]store.Transition, error)
}

// Publisher receives the events produced by successful changes.
type Publisher interface {
	Publish(ctx context.Context, events ...workflow.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...workflow.Event) {}

// Engine owns all workflow mutations.
type Engine struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	locks     *keyedMutex
	now       func() time.Time
	attempts  int
	deferred  bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPublisher routes produced events to p.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetryAttempts bounds reload-and-retry after a version conflict.
func WithRetryAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attempts = n
		}
	}
}

// WithDeferredStart creates new episodes with every phase pending.
func WithDeferredStart(enabled bool) Option {
	return func(e *Engine) {
		e.deferred = enabled
	}
}

// New constructs an engine over repo.
func New(repo Repository, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		publisher: noopPublisher{},
		logger:    logging.NewComponentLogger(logger, "engine"),
		tracer:    otel.Tracer("docflow/internal/engine"),
		locks:     newKeyedMutex(),
		now:       time.Now,
		attempts:  defaultRetryAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig constructs an engine using the [workflow] config section.
func NewFromConfig(cfg *config.Config, repo Repository, publisher Publisher, logger *slog.Logger) *Engine {
	return New(repo, logger,
		WithPublisher(publisher),
		WithRetryAttempts(cfg.Workflow.AdvanceRetryAttempts),
		WithDeferredStart(cfg.Workflow.DeferredStart),
	)
}

// CreateEpisode stores a new episode and its workflow atomically. Unless
// deferred start is enabled, research begins immediately and a PhaseStarted
// event is published.
func (e *Engine) CreateEpisode(ctx context.Context, ep store.Episode) (*store.Episode, workflow.Workflow, error) {
	ctx, span := e.tracer.Start(ctx, "engine.CreateEpisode", trace.WithAttributes(
		attribute.String("project.id", ep.ProjectID),
	))
	defer span.End()

	now := e.now()
	var (
		wf      workflow.Workflow
		history []workflow.Event
	)
	if e.deferred {
		wf = workflow.NewDeferred("", now)
	} else {
		wf = workflow.New("", now)
		first := wf.Phases[0]
		history = append(history, workflow.Event{
			Kind:  workflow.EventPhaseStarted,
			Phase: first.Name,
			From:  workflow.StatusPending,
			To:    first.Status,
			Notes: "episode created",
			At:    first.UpdatedAt,
		})
	}

	created, stored, err := e.repo.CreateEpisode(ctx, ep, wf, history)
	if err != nil {
		recordError(span, err)
		return nil, workflow.Workflow{}, fmt.Errorf("create episode: %w", err)
	}
	span.SetAttributes(attribute.String("episode.id", created.ID))
	for i := range history {
		history[i].EpisodeID = created.ID
	}

	ctx = services.WithEpisodeID(ctx, created.ID)
	logging.WithContext(ctx, e.logger).Info("episode created",
		logging.String("title", created.Title),
		logging.Bool("deferred_start", e.deferred),
	)
	e.publisher.Publish(ctx, history...)
	return created, stored, nil
}

// Advance moves phase of the episode's workflow to status. Calls for the same
// episode are serialized; the returned snapshot is the persisted state.
// Unknown phases yield InvalidPhaseError and unknown statuses
// IllegalTransitionError; on any error the workflow is unchanged.
func (e *Engine) Advance(ctx context.Context, episodeID string, phase workflow.PhaseName, status workflow.Status, notes string) (workflow.Workflow, error) {
	ctx = services.WithPhase(services.WithEpisodeID(ctx, episodeID), string(phase))
	ctx, span := e.tracer.Start(ctx, "engine.Advance", trace.WithAttributes(
		attribute.String("episode.id", episodeID),
		attribute.String("workflow.phase", string(phase)),
		attribute.String("workflow.status", string(status)),
	))
	defer span.End()
	logger := logging.WithContext(ctx, e.logger)

	release := e.locks.Lock(episodeID)
	defer release()

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		wf, produced, err := e.repo.UpdateWorkflow(ctx, episodeID, func(current workflow.Workflow) (workflow.Workflow, []workflow.Event, error) {
			return current.Advance(phase, status, notes, e.now())
		})
		if err == nil {
			span.SetAttributes(attribute.Int64("workflow.version", wf.Version))
			logger.Info("phase advanced",
				logging.String("status", string(status)),
				logging.String("current", string(wf.Current)),
				logging.Int64("version", wf.Version),
			)
			e.publisher.Publish(ctx, produced...)
			return wf, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			recordError(span, err)
			if workflow.IsValidationError(err) {
				logger.Debug("advance rejected", logging.Error(err))
				return workflow.Workflow{}, err
			}
			return workflow.Workflow{}, fmt.Errorf("advance %s: %w", episodeID, err)
		}
		lastErr = err
		logger.Debug("workflow changed concurrently, retrying", logging.Int("attempt", attempt))
	}
	recordError(span, lastErr)
	return workflow.Workflow{}, fmt.Errorf("advance %s after %d attempts: %w", episodeID, e.attempts, lastErr)
}

// Workflow returns the current snapshot for an episode.
func (e *Engine) Workflow(ctx context.Context, episodeID string) (workflow.Workflow, error) {
	wf, err := e.repo.LoadWorkflow(ctx, episodeID)
	if err != nil {
		return workflow.Workflow{}, err
	}
	return wf, nil
}

// CurrentPhase returns the active phase of an episode, or NoActivePhaseError
// when its workflow is complete or not started.
func (e *Engine) CurrentPhase(ctx context.Context, episodeID string) (workflow.Phase, error) {
	wf, err := e.Workflow(ctx, episodeID)
	if err != nil {
		return workflow.Phase{}, err
	}
	return wf.CurrentPhase()
}

// Summary returns the phase to status projection for an episode.
func (e *Engine) Summary(ctx context.Context, episodeID string) (workflow.Summary, error) {
	wf, err := e.Workflow(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return wf.Summary(), nil
}

// History returns the recorded transitions for an episode.
func (e *Engine) History(ctx context.Context, episodeID string) ([]store.Transition, error) {
	return e.repo.History(ctx, episodeID)
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
