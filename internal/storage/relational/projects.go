package relational

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EnsureProject creates projectID if it does not already exist,
// enforcing the §3 invariant that a Project must exist before any
// long-term memory referencing it is inserted.
func (s *Store) EnsureProject(ctx context.Context, projectID, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (project_id, name)
		VALUES ($1, $2)
		ON CONFLICT (project_id) DO NOTHING
	`, projectID, name)
	return err
}

// GetProject returns the project, or pgx.ErrNoRows if it does not exist.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT project_id, name, description, owner, active, created_at, updated_at
		FROM projects WHERE project_id = $1
	`, projectID)

	var p Project
	if err := row.Scan(&p.ProjectID, &p.Name, &p.Description, &p.Owner, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("relational: get project %s: %w", projectID, err)
	}
	return &p, nil
}

// ListProjects returns every known project ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT project_id, name, description, owner, active, created_at, updated_at
		FROM projects ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("relational: list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ProjectID, &p.Name, &p.Description, &p.Owner, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject updates the mutable fields of an existing project.
func (s *Store) UpdateProject(ctx context.Context, p Project) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET name = $2, description = $3, owner = $4, active = $5, updated_at = now()
		WHERE project_id = $1
	`, p.ProjectID, p.Name, p.Description, p.Owner, p.Active)
	if err != nil {
		return fmt.Errorf("relational: update project %s: %w", p.ProjectID, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
