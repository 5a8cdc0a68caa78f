// Package documents manages project document metadata. File bytes live in
// object storage and move via pre-signed URLs only.
package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// ErrNotFound is returned when a document does not exist in the project.
var ErrNotFound = errors.New("document not found")

// Repository persists document metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a documents repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a document row with a pre-generated id so the storage key
// can embed it before the row exists.
func (r *Repository) Create(ctx context.Context, doc *models.Document) error {
	const q = `INSERT INTO documents (id, workspace_id, project_id, name, storage_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q,
		doc.ID, doc.WorkspaceID, doc.ProjectID, doc.Name, doc.StorageKey, doc.ContentType, doc.SizeBytes).
		Scan(&doc.CreatedAt)
}

// GetForProject returns a document scoped to its project.
func (r *Repository) GetForProject(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	const q = `SELECT id, workspace_id, project_id, name, storage_key, content_type, size_bytes, created_at
		FROM documents WHERE id = $1 AND project_id = $2`
	var d models.Document
	err := r.pool.QueryRow(ctx, q, id, projectID).
		Scan(&d.ID, &d.WorkspaceID, &d.ProjectID, &d.Name, &d.StorageKey, &d.ContentType, &d.SizeBytes, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListForProject returns a project's documents, newest first.
func (r *Repository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.Document, error) {
	const q = `SELECT id, workspace_id, project_id, name, storage_key, content_type, size_bytes, created_at
		FROM documents WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.ProjectID, &d.Name, &d.StorageKey, &d.ContentType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// Delete removes a document row scoped to its project.
func (r *Repository) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
