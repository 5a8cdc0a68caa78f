package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceType distinguishes a user's personal workspace from shared ones.
type WorkspaceType string

const (
	WorkspacePersonal WorkspaceType = "personal"
	WorkspaceTeam     WorkspaceType = "team"
)

// Workspace is the tenancy boundary. Every domain resource belongs to
// exactly one workspace.
type Workspace struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Type      WorkspaceType `json:"workspace_type"`
	OwnerID   uuid.UUID     `json:"owner_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Membership roles within a workspace.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership links a user to a workspace with a role. A membership with a
// NULL accepted_at is pending (invited but not accepted) and grants no
// access anywhere.
type Membership struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        string     `json:"role"`
	InvitedAt   time.Time  `json:"invited_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// Accepted reports whether the membership grants access.
func (m Membership) Accepted() bool { return m.AcceptedAt != nil }

// Subscription is a workspace's billing plan. Workspace creation provisions a
// free one; enforcement beyond the authorization gate is out of scope here.
type Subscription struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Plan        string    `json:"plan"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
