// Package authz is the single decision point for workspace access. Handlers
// never query membership tables directly; they ask the Gate, so the policy
// (accepted memberships only, membership re-read on every request) lives in
// one place.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/nerlude/backend/internal/models"
)

// MembershipResolver reports a user's accepted workspace memberships.
// Pending (invited, not accepted) memberships are never returned.
type MembershipResolver interface {
	ResolveMemberships(ctx context.Context, userID uuid.UUID) ([]models.Membership, error)
}

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool
	Role    string // the caller's role in the workspace, when allowed
	Reason  string // why access was denied, when not
}

// Allow returns an allowing decision with the caller's role.
func Allow(role string) Decision { return Decision{Allowed: true, Role: role} }

// Deny returns a denying decision with a reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Gate decides whether an identity may act on a workspace. Decisions are
// never cached across requests: a membership revoked mid-session takes
// effect on the next request.
type Gate struct {
	resolver MembershipResolver
}

// NewGate creates an authorization gate.
func NewGate(resolver MembershipResolver) *Gate {
	return &Gate{resolver: resolver}
}

// Authorize allows iff the user holds an accepted membership in the
// workspace, regardless of whether the addressed resource exists.
func (g *Gate) Authorize(ctx context.Context, userID, workspaceID uuid.UUID) (Decision, error) {
	memberships, err := g.resolver.ResolveMemberships(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	for _, m := range memberships {
		if m.WorkspaceID == workspaceID {
			return Allow(m.Role), nil
		}
	}
	return Deny("not a member of this workspace"), nil
}

// AuthorizeRole allows iff the user holds one of the given roles in the
// workspace.
func (g *Gate) AuthorizeRole(ctx context.Context, userID, workspaceID uuid.UUID, roles ...string) (Decision, error) {
	d, err := g.Authorize(ctx, userID, workspaceID)
	if err != nil || !d.Allowed {
		return d, err
	}
	for _, role := range roles {
		if d.Role == role {
			return d, nil
		}
	}
	return Deny("insufficient role in this workspace"), nil
}

// AllowedWorkspaces returns the ids of every workspace the user may access,
// for scoping cross-workspace listing queries.
func (g *Gate) AllowedWorkspaces(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	memberships, err := g.resolver.ResolveMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.WorkspaceID)
	}
	return ids, nil
}
