package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups services, documents, assets and stacks inside a workspace.
type Project struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service is a tracked external service or subscription (hosting, SaaS,
// domain, ...) with its cost and renewal date.
type Service struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	Name           string     `json:"name"`
	Provider       string     `json:"provider,omitempty"`
	Category       string     `json:"category,omitempty"`
	MonthlyCost    float64    `json:"monthly_cost"`
	RenewalDate    *time.Time `json:"renewal_date,omitempty"`
	CredentialHint string     `json:"credential_hint,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Document is an uploaded file attached to a project, stored in object
// storage under StorageKey.
type Document struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Asset is a named link or identifier a project depends on (repo, domain,
// dashboard, API endpoint, ...).
type Asset struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stack is a technology entry in a project's stack list.
type Stack struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Version     string    `json:"version,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
