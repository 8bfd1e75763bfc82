package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docflow/internal/workflow"
)

// TransformFunc computes the next workflow snapshot from the stored one.
type TransformFunc func(current workflow.Workflow) (workflow.Workflow, []workflow.Event, error)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const phaseColumns = "episode_id, position, name, status, started_at, completed_at, review_notes, updated_at"

func scanPhase(scanner rowScanner) (string, workflow.Phase, error) {
	var (
		episodeID   string
		position    int
		name        string
		status      string
		startedRaw  sql.NullString
		completeRaw sql.NullString
		notes       sql.NullString
		updatedRaw  string
	)
	if err := scanner.Scan(&episodeID, &position, &name, &status, &startedRaw, &completeRaw, &notes, &updatedRaw); err != nil {
		return "", workflow.Phase{}, err
	}
	return episodeID, workflow.Phase{
		Name:        workflow.PhaseName(name),
		Status:      workflow.Status(status),
		StartedAt:   parseNullTime(startedRaw),
		CompletedAt: parseNullTime(completeRaw),
		ReviewNotes: notes.String,
		UpdatedAt:   parseTimeOrZero(updatedRaw),
	}, nil
}

func loadWorkflow(ctx context.Context, q querier, episodeID string) (workflow.Workflow, error) {
	var (
		current    sql.NullString
		version    int64
		updatedRaw string
	)
	err := q.QueryRowContext(ctx,
		`SELECT current_phase, version, updated_at FROM workflows WHERE episode_id = ?`, episodeID,
	).Scan(&current, &version, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.Workflow{}, fmt.Errorf("workflow for episode %s: %w", episodeID, ErrNotFound)
	}
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("load workflow: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+phaseColumns+` FROM workflow_phases WHERE episode_id = ? ORDER BY position`, episodeID)
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("load phases: %w", err)
	}
	defer rows.Close()

	wf := workflow.Workflow{
		EpisodeID: episodeID,
		Current:   workflow.PhaseName(current.String),
		Version:   version,
		UpdatedAt: parseTimeOrZero(updatedRaw),
	}
	for rows.Next() {
		_, phase, err := scanPhase(rows)
		if err != nil {
			return workflow.Workflow{}, fmt.Errorf("scan phase: %w", err)
		}
		wf.Phases = append(wf.Phases, phase)
	}
	if err := rows.Err(); err != nil {
		return workflow.Workflow{}, fmt.Errorf("load phases: %w", err)
	}
	return wf, nil
}

// LoadWorkflow returns the workflow snapshot for an episode.
func (s *Store) LoadWorkflow(ctx context.Context, episodeID string) (workflow.Workflow, error) {
	return loadWorkflow(ensureContext(ctx), s.db, episodeID)
}

// UpdateWorkflow performs an atomic read-modify-write of one workflow. fn
// receives the stored snapshot; an error from fn aborts without writing and
// is returned unchanged. The write succeeds only if the stored version is
// still the one fn saw, otherwise ErrConflict is returned. The returned
// snapshot carries the incremented version.
func (s *Store) UpdateWorkflow(ctx context.Context, episodeID string, fn TransformFunc) (workflow.Workflow, []workflow.Event, error) {
	ctx = ensureContext(ctx)
	var (
		result workflow.Workflow
		events []workflow.Event
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadWorkflow(ctx, tx, episodeID)
		if err != nil {
			return err
		}
		next, produced, err := fn(current)
		if err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return fmt.Errorf("refusing to persist invalid workflow: %w", err)
		}

		written, err := s.writeWorkflow(ctx, tx, current, next, produced)
		if err != nil {
			return err
		}
		result, events = written, produced
		return nil
	})
	if err != nil {
		return workflow.Workflow{}, nil, err
	}
	return result, events, nil
}

// writeWorkflow persists next over current. The write is guarded by
// current.Version; a mismatch yields ErrConflict.
func (s *Store) writeWorkflow(ctx context.Context, tx *sql.Tx, current, next workflow.Workflow, produced []workflow.Event) (workflow.Workflow, error) {
	episodeID := current.EpisodeID
	now := s.timestamp()
	res, err := tx.ExecContext(ctx,
		`UPDATE workflows SET current_phase = ?, version = version + 1, updated_at = ?
         WHERE episode_id = ? AND version = ?`,
		nullableString(string(next.Current)), formatTime(now), episodeID, current.Version,
	)
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("update workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("update workflow: %w", err)
	}
	if affected == 0 {
		return workflow.Workflow{}, fmt.Errorf("episode %s at version %d: %w", episodeID, current.Version, ErrConflict)
	}

	for i, phase := range next.Phases {
		if i < len(current.Phases) && samePhase(current.Phases[i], phase) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE workflow_phases SET status = ?, started_at = ?, completed_at = ?, review_notes = ?, updated_at = ?
             WHERE episode_id = ? AND position = ?`,
			string(phase.Status), nullableTime(phase.StartedAt), nullableTime(phase.CompletedAt),
			nullableString(phase.ReviewNotes), formatTime(phase.UpdatedAt), episodeID, i+1,
		); err != nil {
			return workflow.Workflow{}, fmt.Errorf("update phase %s: %w", phase.Name, err)
		}
	}
	if err := insertTransitions(ctx, tx, episodeID, produced); err != nil {
		return workflow.Workflow{}, err
	}

	next.Version = current.Version + 1
	next.UpdatedAt = now
	return next, nil
}

func samePhase(a, b workflow.Phase) bool {
	return a.Status == b.Status &&
		a.ReviewNotes == b.ReviewNotes &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		sameTime(a.StartedAt, b.StartedAt) &&
		sameTime(a.CompletedAt, b.CompletedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func insertTransitions(ctx context.Context, tx *sql.Tx, episodeID string, events []workflow.Event) error {
	for _, event := range events {
		if !event.Transition() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_transitions (episode_id, phase, from_status, to_status, notes, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			episodeID, string(event.Phase), string(event.From), string(event.To),
			nullableString(event.Notes), formatTime(event.At),
		); err != nil {
			return fmt.Errorf("record transition: %w", err)
		}
	}
	return nil
}

// ListWorkflows returns every episode with its workflow, ordered by creation.
func (s *Store) ListWorkflows(ctx context.Context) ([]EpisodeWorkflow, error) {
	ctx = ensureContext(ctx)
	episodes, err := s.ListEpisodes(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, nil
	}

	headers := make(map[string]workflow.Workflow, len(episodes))
	rows, err := s.db.QueryContext(ctx, `SELECT episode_id, current_phase, version, updated_at FROM workflows`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	for rows.Next() {
		var (
			episodeID  string
			current    sql.NullString
			version    int64
			updatedRaw string
		)
		if err := rows.Scan(&episodeID, &current, &version, &updatedRaw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		headers[episodeID] = workflow.Workflow{
			EpisodeID: episodeID,
			Current:   workflow.PhaseName(current.String),
			Version:   version,
			UpdatedAt: parseTimeOrZero(updatedRaw),
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	phaseRows, err := s.db.QueryContext(ctx, `SELECT `+phaseColumns+` FROM workflow_phases ORDER BY episode_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer phaseRows.Close()
	for phaseRows.Next() {
		episodeID, phase, err := scanPhase(phaseRows)
		if err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		wf := headers[episodeID]
		wf.Phases = append(wf.Phases, phase)
		headers[episodeID] = wf
	}
	if err := phaseRows.Err(); err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}

	out := make([]EpisodeWorkflow, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, EpisodeWorkflow{Episode: *ep, Workflow: headers[ep.ID]})
	}
	return out, nil
}

// History returns the recorded transitions for an episode, oldest first.
func (s *Store) History(ctx context.Context, episodeID string) ([]Transition, error) {
	ctx = ensureContext(ctx)
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, episode_id, phase, from_status, to_status, notes, created_at
         FROM workflow_transitions WHERE episode_id = ? ORDER BY id`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var history []Transition
	for rows.Next() {
		var (
			tr        Transition
			phase     string
			from      string
			to        string
			notes     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&tr.ID, &tr.EpisodeID, &phase, &from, &to, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Phase = workflow.PhaseName(phase)
		tr.From = workflow.Status(from)
		tr.To = workflow.Status(to)
		tr.Notes = notes.String
		tr.At = parseTimeOrZero(createdAt)
		history = append(history, tr)
	}
	return history, rows.Err()
}
