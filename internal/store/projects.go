package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docflow/internal/services"
)

const projectColumns = "id, title, description, status, created_at, updated_at"

func scanProject(scanner rowScanner) (*Project, error) {
	var (
		p           Project
		description sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&p.ID, &p.Title, &description, &p.Status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt = parseTimeOrZero(createdRaw)
	p.UpdatedAt = parseTimeOrZero(updatedRaw)
	return &p, nil
}

// CreateProject inserts a project, assigning an ID and timestamps.
func (s *Store) CreateProject(ctx context.Context, p Project) (*Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: project title is required", services.ErrValidation)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Status) == "" {
		p.Status = DefaultProjectStatus
	}
	now := s.timestamp()
	p.CreatedAt, p.UpdatedAt = now, now

	if _, err := s.execWithRetry(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, nullableString(p.Description), p.Status, formatTime(now), formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return &p, nil
}

// GetProject returns the project or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject rewrites the descriptive fields and status of a project.
func (s *Store) UpdateProject(ctx context.Context, p Project) (*Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: project title is required", services.ErrValidation)
	}
	if strings.TrimSpace(p.Status) == "" {
		p.Status = DefaultProjectStatus
	}
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`UPDATE projects SET title = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Title, nullableString(p.Description), p.Status, formatTime(now), p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	return s.GetProject(ctx, p.ID)
}

// CountProjects returns the number of stored projects.
func (s *Store) CountProjects(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

// DeleteProject removes a project with its episodes and workflows.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}
