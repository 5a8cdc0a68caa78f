package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerlude/backend/internal/models"
)

type fakeResolver struct {
	memberships []models.Membership
	err         error
}

func (f *fakeResolver) ResolveMemberships(context.Context, uuid.UUID) ([]models.Membership, error) {
	return f.memberships, f.err
}

func accepted(workspaceID uuid.UUID, role string) models.Membership {
	now := time.Now()
	return models.Membership{WorkspaceID: workspaceID, Role: role, AcceptedAt: &now}
}

func TestAuthorize(t *testing.T) {
	user := uuid.New()
	wsA := uuid.New()
	wsB := uuid.New()

	tests := []struct {
		name        string
		memberships []models.Membership
		workspace   uuid.UUID
		wantAllowed bool
		wantRole    string
	}{
		{"member allowed", []models.Membership{accepted(wsA, models.RoleMember)}, wsA, true, models.RoleMember},
		{"non-member denied", []models.Membership{accepted(wsA, models.RoleMember)}, wsB, false, ""},
		{"no memberships denied", nil, wsA, false, ""},
		{"owner role surfaces", []models.Membership{accepted(wsA, models.RoleOwner)}, wsA, true, models.RoleOwner},
		// The gate denies non-members even for workspaces that do not exist
		// at all; existence never factors in.
		{"unknown workspace denied", []models.Membership{accepted(wsA, models.RoleOwner)}, uuid.New(), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(&fakeResolver{memberships: tt.memberships})
			d, err := gate.Authorize(context.Background(), user, tt.workspace)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllowed)
			}
			if d.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", d.Role, tt.wantRole)
			}
			if !d.Allowed && d.Reason == "" {
				t.Error("denied decision should carry a reason")
			}
		})
	}
}

func TestAuthorizeRole(t *testing.T) {
	user := uuid.New()
	ws := uuid.New()
	gate := NewGate(&fakeResolver{memberships: []models.Membership{accepted(ws, models.RoleMember)}})

	if d, _ := gate.AuthorizeRole(context.Background(), user, ws, models.RoleMember, models.RoleAdmin); !d.Allowed {
		t.Error("member should pass a member-or-admin check")
	}
	if d, _ := gate.AuthorizeRole(context.Background(), user, ws, models.RoleOwner, models.RoleAdmin); d.Allowed {
		t.Error("member should fail an owner-or-admin check")
	}
}

func TestAuthorizeResolverError(t *testing.T) {
	gate := NewGate(&fakeResolver{err: errors.New("db down")})
	_, err := gate.Authorize(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("resolver errors must propagate, not silently deny or allow")
	}
}

func TestAllowedWorkspaces(t *testing.T) {
	wsA, wsB := uuid.New(), uuid.New()
	gate := NewGate(&fakeResolver{memberships: []models.Membership{
		accepted(wsA, models.RoleOwner),
		accepted(wsB, models.RoleMember),
	}})
	ids, err := gate.AllowedWorkspaces(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("AllowedWorkspaces: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d workspace ids, want 2", len(ids))
	}
}
