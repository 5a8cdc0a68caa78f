package projects

import (
	"context"

	"github.com/google/uuid"

	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/models"
)

// Access resolves a project by id and checks the caller's membership in its
// workspace. The nested resource handlers (services, documents, assets,
// stacks) all go through it so a project in a foreign workspace looks
// identical to a project that does not exist.
type Access struct {
	repo *Repository
	gate *authz.Gate
}

// NewAccess creates a project access checker.
func NewAccess(repo *Repository, gate *authz.Gate) *Access {
	return &Access{repo: repo, gate: gate}
}

// Require returns the project iff the caller holds an accepted membership in
// its workspace. A missing project and a foreign project both return
// ErrNotFound.
func (a *Access) Require(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	p, err := a.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	d, err := a.gate.Authorize(ctx, userID, p.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, ErrNotFound
	}
	return p, nil
}
