// Package projects manages projects and resolves project-scoped access for
// the nested resource handlers.
package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project not found")

// Repository persists projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a project into a workspace.
func (r *Repository) Create(ctx context.Context, workspaceID uuid.UUID, name, description, status string) (*models.Project, error) {
	const q = `INSERT INTO projects (workspace_id, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, workspace_id, name, description, status, created_at, updated_at`
	var p models.Project
	err := r.pool.QueryRow(ctx, q, workspaceID, name, description, status).
		Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a project regardless of workspace. Callers must authorize
// against the returned workspace id before revealing anything about the row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	const q = `SELECT id, workspace_id, name, description, status, created_at, updated_at
		FROM projects WHERE id = $1`
	var p models.Project
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForWorkspaces returns projects across the given workspaces, newest
// first. An empty allow-list returns nothing.
func (r *Repository) ListForWorkspaces(ctx context.Context, workspaceIDs []uuid.UUID) ([]models.Project, error) {
	if len(workspaceIDs) == 0 {
		return []models.Project{}, nil
	}
	const q = `SELECT id, workspace_id, name, description, status, created_at, updated_at
		FROM projects WHERE workspace_id = ANY($1) ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, workspaceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update modifies a project's mutable fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, description, status string) (*models.Project, error) {
	const q = `UPDATE projects SET name = $2, description = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, workspace_id, name, description, status, created_at, updated_at`
	var p models.Project
	err := r.pool.QueryRow(ctx, q, id, name, description, status).
		Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a project. Nested rows go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
