// Package services tracks external services and subscriptions with their
// monthly cost and renewal date.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// ErrNotFound is returned when a service does not exist.
var ErrNotFound = errors.New("service not found")

// Repository persists services.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a services repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const serviceColumns = `id, workspace_id, project_id, name, provider, category, monthly_cost, renewal_date, credential_hint, created_at, updated_at`

func scanService(row pgx.Row) (*models.Service, error) {
	var s models.Service
	err := row.Scan(&s.ID, &s.WorkspaceID, &s.ProjectID, &s.Name, &s.Provider, &s.Category,
		&s.MonthlyCost, &s.RenewalDate, &s.CredentialHint, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Fields holds the writable columns of a service.
type Fields struct {
	ProjectID      *uuid.UUID
	Name           string
	Provider       string
	Category       string
	MonthlyCost    float64
	RenewalDate    *time.Time
	CredentialHint string
}

// Create inserts a service into a workspace.
func (r *Repository) Create(ctx context.Context, workspaceID uuid.UUID, f Fields) (*models.Service, error) {
	q := `INSERT INTO services (workspace_id, project_id, name, provider, category, monthly_cost, renewal_date, credential_hint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + serviceColumns
	return scanService(r.pool.QueryRow(ctx, q,
		workspaceID, f.ProjectID, f.Name, f.Provider, f.Category, f.MonthlyCost, f.RenewalDate, f.CredentialHint))
}

// GetByID returns a service regardless of workspace. Callers authorize
// against the returned workspace id before revealing the row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	return scanService(r.pool.QueryRow(ctx, q, id))
}

// Filter narrows a service listing.
type Filter struct {
	ProjectID *uuid.UUID
	Category  string
}

// ListForWorkspaces returns services across the given workspaces. An empty
// allow-list returns nothing.
func (r *Repository) ListForWorkspaces(ctx context.Context, workspaceIDs []uuid.UUID, f Filter) ([]models.Service, error) {
	if len(workspaceIDs) == 0 {
		return []models.Service{}, nil
	}
	q := `SELECT ` + serviceColumns + ` FROM services WHERE workspace_id = ANY($1)`
	args := []interface{}{workspaceIDs}
	if f.ProjectID != nil {
		args = append(args, *f.ProjectID)
		q += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Update replaces a service's writable fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f Fields) (*models.Service, error) {
	q := `UPDATE services SET project_id = $2, name = $3, provider = $4, category = $5,
		monthly_cost = $6, renewal_date = $7, credential_hint = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + serviceColumns
	return scanService(r.pool.QueryRow(ctx, q,
		id, f.ProjectID, f.Name, f.Provider, f.Category, f.MonthlyCost, f.RenewalDate, f.CredentialHint))
}

// Delete removes a service.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
