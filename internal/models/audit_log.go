package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit action names written by handlers.
const (
	ActionLogin            = "login"
	ActionLogout           = "logout"
	ActionWorkspaceCreated = "workspace_created"
	ActionMemberInvited    = "member_invited"
	ActionMemberRemoved    = "member_removed"
	ActionInviteAccepted   = "invitation_accepted"
	ActionProjectCreated   = "project_created"
	ActionProjectUpdated   = "project_updated"
	ActionProjectDeleted   = "project_deleted"
	ActionServiceCreated   = "service_created"
	ActionServiceUpdated   = "service_updated"
	ActionServiceDeleted   = "service_deleted"
	ActionDocumentCreated  = "document_created"
	ActionDocumentDeleted  = "document_deleted"
	ActionAssetCreated     = "asset_created"
	ActionAssetDeleted     = "asset_deleted"
	ActionStackCreated     = "stack_created"
	ActionStackDeleted     = "stack_deleted"
)

// AuditLog is an immutable record of one state-changing action, scoped to a
// workspace. Rows are inserted once and never updated or deleted by this
// layer.
type AuditLog struct {
	ID          uuid.UUID       `json:"id"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	ActorID     uuid.UUID       `json:"actor_id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    *uuid.UUID      `json:"entity_id,omitempty"`
	OldData     json.RawMessage `json:"old_data,omitempty"`
	NewData     json.RawMessage `json:"new_data,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Notification is an in-app message addressed to a single user. Only the
// addressee may read or mark it.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
