// Package stacks manages a project's technology stack list.
package stacks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// ErrNotFound is returned when a stack entry does not exist in the project.
var ErrNotFound = errors.New("stack entry not found")

// Repository persists stack entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stacks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a stack entry into a project.
func (r *Repository) Create(ctx context.Context, workspaceID, projectID uuid.UUID, name, category, version string) (*models.Stack, error) {
	const q = `INSERT INTO stacks (workspace_id, project_id, name, category, version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, workspace_id, project_id, name, category, version, created_at`
	var s models.Stack
	err := r.pool.QueryRow(ctx, q, workspaceID, projectID, name, category, version).
		Scan(&s.ID, &s.WorkspaceID, &s.ProjectID, &s.Name, &s.Category, &s.Version, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListForProject returns a project's stack entries grouped by category.
func (r *Repository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Stack, error) {
	const q = `SELECT id, workspace_id, project_id, name, category, version, created_at
		FROM stacks WHERE project_id = $1 ORDER BY category, name`
	rows, err := r.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Stack{}
	for rows.Next() {
		var s models.Stack
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.ProjectID, &s.Name, &s.Category, &s.Version, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Delete removes a stack entry scoped to its project.
func (r *Repository) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stacks WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
