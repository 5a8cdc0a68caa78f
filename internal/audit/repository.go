package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// Repository persists and queries audit_logs. Insert-only: the table has no
// update or delete path in this codebase.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one audit entry.
func (r *Repository) Insert(ctx context.Context, entry *models.AuditLog) error {
	const q = `INSERT INTO audit_logs (workspace_id, actor_id, action, entity_type, entity_id, old_data, new_data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		entry.WorkspaceID, entry.ActorID, entry.Action, entry.EntityType,
		entry.EntityID, entry.OldData, entry.NewData, entry.Metadata).
		Scan(&entry.ID, &entry.CreatedAt)
}

// Filter narrows an activity listing.
type Filter struct {
	Limit     int
	EntityID  *uuid.UUID
	ProjectID *uuid.UUID // matches entity_id or metadata->>'project_id'
}

// ListForWorkspaces returns entries for the given workspaces, newest first.
// The caller supplies the membership allow-list; an empty list returns
// nothing.
func (r *Repository) ListForWorkspaces(ctx context.Context, workspaceIDs []uuid.UUID, f Filter) ([]models.AuditLog, error) {
	if len(workspaceIDs) == 0 {
		return []models.AuditLog{}, nil
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := `SELECT id, workspace_id, actor_id, action, entity_type, entity_id, old_data, new_data, metadata, created_at
		FROM audit_logs WHERE workspace_id = ANY($1)`
	args := []interface{}{workspaceIDs}
	if f.EntityID != nil {
		args = append(args, *f.EntityID)
		q += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if f.ProjectID != nil {
		args = append(args, *f.ProjectID)
		n := len(args)
		// The project reference may be the entity itself or nested in metadata.
		q += fmt.Sprintf(" AND (entity_id = $%d OR metadata->>'project_id' = $%d::text)", n, n)
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.ActorID, &e.Action, &e.EntityType,
			&e.EntityID, &e.OldData, &e.NewData, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
