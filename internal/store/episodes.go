package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docflow/internal/services"
	"docflow/internal/workflow"
)

const episodeColumns = "id, project_id, title, description, duration, created_at, updated_at"

func scanEpisode(scanner rowScanner) (*Episode, error) {
	var (
		ep          Episode
		description sql.NullString
		duration    sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&ep.ID, &ep.ProjectID, &ep.Title, &description, &duration, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	ep.Description = description.String
	ep.Duration = duration.String
	ep.CreatedAt = parseTimeOrZero(createdRaw)
	ep.UpdatedAt = parseTimeOrZero(updatedRaw)
	return &ep, nil
}

// CreateEpisode inserts an episode together with its initial workflow in one
// transaction. An empty ep.ID is assigned; wf.EpisodeID and the episode IDs
// of history are overwritten with the final ID. history holds the
// transitions that produced wf (empty for a deferred start).
func (s *Store) CreateEpisode(ctx context.Context, ep Episode, wf workflow.Workflow, history []workflow.Event) (*Episode, workflow.Workflow, error) {
	ep.Title = strings.TrimSpace(ep.Title)
	if ep.Title == "" {
		return nil, workflow.Workflow{}, fmt.Errorf("%w: episode title is required", services.ErrValidation)
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	wf = wf.Clone()
	wf.EpisodeID = ep.ID
	if err := wf.Validate(); err != nil {
		return nil, workflow.Workflow{}, fmt.Errorf("initial workflow: %w", err)
	}
	now := s.timestamp()
	ep.CreatedAt, ep.UpdatedAt = now, now
	wf.UpdatedAt = now

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM projects WHERE id = ?`, ep.ProjectID).Scan(&exists); err != nil {
			return fmt.Errorf("check project: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("project %s: %w", ep.ProjectID, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (`+episodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ep.ID, ep.ProjectID, ep.Title, nullableString(ep.Description), nullableString(ep.Duration),
			formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert episode: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflows (episode_id, current_phase, version, updated_at) VALUES (?, ?, ?, ?)`,
			ep.ID, nullableString(string(wf.Current)), wf.Version, formatTime(now),
		); err != nil {
			return fmt.Errorf("insert workflow: %w", err)
		}
		for i, phase := range wf.Phases {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO workflow_phases (episode_id, position, name, status, started_at, completed_at, review_notes, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				ep.ID, i+1, string(phase.Name), string(phase.Status),
				nullableTime(phase.StartedAt), nullableTime(phase.CompletedAt), nullableString(phase.ReviewNotes),
				formatTime(phase.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert phase %s: %w", phase.Name, err)
			}
		}
		return insertTransitions(ctx, tx, ep.ID, history)
	})
	if err != nil {
		return nil, workflow.Workflow{}, err
	}
	return &ep, wf, nil
}

// GetEpisode returns the episode or ErrNotFound.
func (s *Store) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// ListEpisodes returns episodes in creation order. An empty projectID lists
// every episode; an unknown projectID yields ErrNotFound.
func (s *Store) ListEpisodes(ctx context.Context, projectID string) ([]*Episode, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + episodeColumns + ` FROM episodes`
	var args []any
	if projectID != "" {
		if _, err := s.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// UpdateEpisode rewrites the descriptive fields of an episode. The workflow
// is untouched; it only changes through UpdateWorkflow.
func (s *Store) UpdateEpisode(ctx context.Context, ep Episode) (*Episode, error) {
	ep.Title = strings.TrimSpace(ep.Title)
	if ep.Title == "" {
		return nil, fmt.Errorf("%w: episode title is required", services.ErrValidation)
	}
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`UPDATE episodes SET title = ?, description = ?, duration = ?, updated_at = ? WHERE id = ?`,
		ep.Title, nullableString(ep.Description), nullableString(ep.Duration), formatTime(now), ep.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update episode: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("episode %s: %w", ep.ID, ErrNotFound)
	}
	return s.GetEpisode(ctx, ep.ID)
}

// DeleteEpisode removes an episode and its workflow.
func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	return nil
}
