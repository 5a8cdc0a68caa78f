// Package assets manages a project's linked resources (repositories,
// domains, dashboards, endpoints).
package assets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// ErrNotFound is returned when an asset does not exist in the project.
var ErrNotFound = errors.New("asset not found")

// Repository persists assets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an assets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an asset into a project.
func (r *Repository) Create(ctx context.Context, workspaceID, projectID uuid.UUID, name, kind, url string) (*models.Asset, error) {
	const q = `INSERT INTO assets (workspace_id, project_id, name, kind, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, workspace_id, project_id, name, kind, url, created_at`
	var a models.Asset
	err := r.pool.QueryRow(ctx, q, workspaceID, projectID, name, kind, url).
		Scan(&a.ID, &a.WorkspaceID, &a.ProjectID, &a.Name, &a.Kind, &a.URL, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListForProject returns a project's assets, newest first.
func (r *Repository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Asset, error) {
	const q = `SELECT id, workspace_id, project_id, name, kind, url, created_at
		FROM assets WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Asset{}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.ProjectID, &a.Name, &a.Kind, &a.URL, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Delete removes an asset. The project id is part of the key so a valid
// asset id cannot be deleted through a different project's route.
func (r *Repository) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
