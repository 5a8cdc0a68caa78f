package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
)

// Stats summarizes the caller's workspaces.
type Stats struct {
	Workspaces       int     `json:"workspaces"`
	Projects         int     `json:"projects"`
	ActiveProjects   int     `json:"active_projects"`
	Services         int     `json:"services"`
	Documents        int     `json:"documents"`
	TotalMonthlyCost float64 `json:"total_monthly_cost"`
}

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dashboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StatsForWorkspaces aggregates counts and cost over the given workspaces.
func (r *Repository) StatsForWorkspaces(ctx context.Context, workspaceIDs []uuid.UUID) (*Stats, error) {
	s := &Stats{Workspaces: len(workspaceIDs)}
	if len(workspaceIDs) == 0 {
		return s, nil
	}
	const q = `SELECT
		(SELECT COUNT(*) FROM projects WHERE workspace_id = ANY($1)),
		(SELECT COUNT(*) FROM projects WHERE workspace_id = ANY($1) AND status = 'active'),
		(SELECT COUNT(*) FROM services WHERE workspace_id = ANY($1)),
		(SELECT COUNT(*) FROM documents WHERE workspace_id = ANY($1)),
		(SELECT COALESCE(SUM(monthly_cost), 0) FROM services WHERE workspace_id = ANY($1))`
	err := r.pool.QueryRow(ctx, q, workspaceIDs).
		Scan(&s.Projects, &s.ActiveProjects, &s.Services, &s.Documents, &s.TotalMonthlyCost)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpcomingRenewals returns services across the given workspaces whose
// renewal date falls within the alert horizon, for BuildAlerts.
func (r *Repository) UpcomingRenewals(ctx context.Context, workspaceIDs []uuid.UUID) ([]models.Service, error) {
	if len(workspaceIDs) == 0 {
		return []models.Service{}, nil
	}
	const q = `SELECT id, workspace_id, project_id, name, provider, category, monthly_cost, renewal_date, credential_hint, created_at, updated_at
		FROM services
		WHERE workspace_id = ANY($1) AND renewal_date IS NOT NULL
			AND renewal_date BETWEEN CURRENT_DATE AND CURRENT_DATE + 30
		ORDER BY renewal_date`
	rows, err := r.pool.Query(ctx, q, workspaceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.ProjectID, &s.Name, &s.Provider, &s.Category,
			&s.MonthlyCost, &s.RenewalDate, &s.CredentialHint, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
