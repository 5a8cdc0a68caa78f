package workspaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/utils"
)

var (
	// ErrNotFound is returned when a workspace or membership row is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyMember is returned when inviting an existing member.
	ErrAlreadyMember = errors.New("already a member")
)

// Repository handles workspace, membership and subscription persistence.
// It is also the membership resolver behind the authorization gate.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workspaces repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the workspace, the creator's owner membership (accepted
// immediately) and the default free subscription in one transaction. The
// slug is derived from the name; on collision a random suffix is appended.
func (r *Repository) Create(ctx context.Context, name string, wsType models.WorkspaceType, ownerID uuid.UUID) (*models.Workspace, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "workspace"
	}

	slug := base
	for attempt := 0; ; attempt++ {
		ws, err := r.createWithSlug(ctx, name, slug, wsType, ownerID)
		if err == nil {
			return ws, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && attempt < 5 {
			slug = base + "-" + utils.SlugSuffix()
			continue
		}
		return nil, err
	}
}

func (r *Repository) createWithSlug(ctx context.Context, name, slug string, wsType models.WorkspaceType, ownerID uuid.UUID) (*models.Workspace, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var ws models.Workspace
	err = tx.QueryRow(ctx,
		`INSERT INTO workspaces (name, slug, workspace_type, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, slug, workspace_type, owner_id, created_at, updated_at`,
		name, slug, wsType, ownerID).
		Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.Type, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role, accepted_at)
		 VALUES ($1, $2, $3, NOW())`,
		ws.ID, ownerID, models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("owner membership: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO subscriptions (workspace_id, plan, status) VALUES ($1, 'free', 'active')`, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("default subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &ws, nil
}

// GetByID returns a workspace by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	const q = `SELECT id, name, slug, workspace_type, owner_id, created_at, updated_at FROM workspaces WHERE id = $1`
	var ws models.Workspace
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.Type, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// ResolveMemberships returns the user's accepted memberships. Pending
// invitations grant no access anywhere; the single accepted_at filter here
// is what enforces that uniformly.
func (r *Repository) ResolveMemberships(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	const q = `SELECT id, workspace_id, user_id, role, invited_at, accepted_at
		FROM workspace_members
		WHERE user_id = $1 AND accepted_at IS NOT NULL
		ORDER BY accepted_at ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.InvitedAt, &m.AcceptedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FirstAcceptedWorkspaceID returns the workspace of the user's oldest
// accepted membership, or nil when the user has none. Used to scope login
// and logout audit entries.
func (r *Repository) FirstAcceptedWorkspaceID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	const q = `SELECT workspace_id FROM workspace_members
		WHERE user_id = $1 AND accepted_at IS NOT NULL
		ORDER BY accepted_at ASC LIMIT 1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// WorkspaceWithRole is a workspace joined with the caller's role.
type WorkspaceWithRole struct {
	models.Workspace
	Role string `json:"role"`
}

// ListForUser returns the user's accepted workspaces with their role.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]WorkspaceWithRole, error) {
	const q = `SELECT w.id, w.name, w.slug, w.workspace_type, w.owner_id, w.created_at, w.updated_at, m.role
		FROM workspaces w
		INNER JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1 AND m.accepted_at IS NOT NULL
		ORDER BY w.name`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []WorkspaceWithRole
	for rows.Next() {
		var w WorkspaceWithRole
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.Type, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt, &w.Role); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// Member is one row for GET /workspaces/:id/members.
type Member struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	InvitedAt  time.Time  `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// ListMembers returns all members of a workspace, pending invitations
// included (they are visible to members, they just grant nothing).
func (r *Repository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	const q = `SELECT m.id, m.user_id, u.email, COALESCE(u.full_name, ''), m.role, m.invited_at, m.accepted_at
		FROM workspace_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.invited_at ASC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.InvitedAt, &m.AcceptedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Invite creates a pending membership for the user.
func (r *Repository) Invite(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.Membership, error) {
	const q = `INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, workspace_id, user_id, role, invited_at, accepted_at`
	var m models.Membership
	err := r.pool.QueryRow(ctx, q, workspaceID, userID, role).
		Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.InvitedAt, &m.AcceptedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return &m, nil
}

// AcceptInvitation sets accepted_at on the caller's pending membership.
func (r *Repository) AcceptInvitation(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error) {
	const q = `UPDATE workspace_members SET accepted_at = NOW()
		WHERE workspace_id = $1 AND user_id = $2 AND accepted_at IS NULL
		RETURNING id, workspace_id, user_id, role, invited_at, accepted_at`
	var m models.Membership
	err := r.pool.QueryRow(ctx, q, workspaceID, userID).
		Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.InvitedAt, &m.AcceptedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMember deletes a membership. The owner cannot be removed.
func (r *Repository) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2 AND role <> $3`,
		workspaceID, userID, models.RoleOwner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
