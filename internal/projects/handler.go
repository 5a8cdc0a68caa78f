package projects

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/response"
)

var projectStatuses = map[string]bool{
	"active":   true,
	"paused":   true,
	"archived": true,
}

// Handler handles project HTTP endpoints.
type Handler struct {
	repo     *Repository
	access   *Access
	gate     *authz.Gate
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a projects handler.
func NewHandler(repo *Repository, access *Access, gate *authz.Gate, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, access: access, gate: gate, recorder: recorder, logger: logger}
}

// CreateRequest is the body for POST /projects.
type CreateRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" binding:"required"`
	Name        string    `json:"name" binding:"required,min=1,max=255"`
	Description string    `json:"description" binding:"max=2000"`
	Status      string    `json:"status"`
}

// UpdateRequest is the body for PUT /projects/:id. Omitted fields keep their
// current value.
type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *string `json:"status"`
}

// List handles GET /projects. Scoped to the caller's accepted workspaces; an
// optional workspace_id query narrows within that scope.
func (h *Handler) List(c *gin.Context) {
	userID := identity.UserID(c)
	allowed, err := h.gate.AllowedWorkspaces(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("resolve workspaces", zap.Error(err))
		response.Internal(c, "failed to load projects")
		return
	}
	if v := c.Query("workspace_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid workspace_id")
			return
		}
		var scoped []uuid.UUID
		for _, w := range allowed {
			if w == id {
				scoped = append(scoped, w)
			}
		}
		allowed = scoped
	}
	list, err := h.repo.ListForWorkspaces(c.Request.Context(), allowed)
	if err != nil {
		h.logger.Error("list projects", zap.Error(err))
		response.Internal(c, "failed to load projects")
		return
	}
	if list == nil {
		list = []models.Project{}
	}
	response.OK(c, list)
}

// Create handles POST /projects. The workspace id comes from the body, so a
// non-member gets 403 rather than the 404 used when addressing resources.
func (h *Handler) Create(c *gin.Context) {
	userID := identity.UserID(c)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "workspace_id and name required")
		return
	}
	status := body.Status
	if status == "" {
		status = "active"
	}
	if !projectStatuses[status] {
		response.BadRequest(c, "invalid status")
		return
	}

	d, err := h.gate.Authorize(c.Request.Context(), userID, body.WorkspaceID)
	if err != nil {
		h.logger.Error("authorize", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return
	}
	if !d.Allowed {
		response.Forbidden(c, "not a member of this workspace")
		return
	}

	p, err := h.repo.Create(c.Request.Context(), body.WorkspaceID, body.Name, body.Description, status)
	if err != nil {
		h.logger.Error("create project", zap.Error(err))
		response.Internal(c, "failed to create project")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     userID,
		Action:      models.ActionProjectCreated,
		EntityType:  "project",
		EntityID:    &p.ID,
		New:         p,
	})
	response.Created(c, p)
}

// Get handles GET /projects/:id.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	response.OK(c, p)
}

// Update handles PUT /projects/:id.
func (h *Handler) Update(c *gin.Context) {
	old, ok := h.requireProject(c)
	if !ok {
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid body")
		return
	}
	name, description, status := old.Name, old.Description, old.Status
	if body.Name != nil {
		name = *body.Name
	}
	if body.Description != nil {
		description = *body.Description
	}
	if body.Status != nil {
		if !projectStatuses[*body.Status] {
			response.BadRequest(c, "invalid status")
			return
		}
		status = *body.Status
	}

	p, err := h.repo.Update(c.Request.Context(), old.ID, name, description, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("update project", zap.Error(err))
		response.Internal(c, "failed to update project")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionProjectUpdated,
		EntityType:  "project",
		EntityID:    &p.ID,
		Old:         old,
		New:         p,
	})
	response.OK(c, p)
}

// Delete handles DELETE /projects/:id.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("delete project", zap.Error(err))
		response.Internal(c, "failed to delete project")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionProjectDeleted,
		EntityType:  "project",
		EntityID:    &p.ID,
		Old:         p,
	})
	response.NoContent(c)
}

// requireProject parses :id, loads the project and gates on membership in its
// workspace. Foreign and missing projects are indistinguishable to the
// caller.
func (h *Handler) requireProject(c *gin.Context) (*models.Project, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return nil, false
	}
	p, err := h.access.Require(c.Request.Context(), identity.UserID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "project not found")
			return nil, false
		}
		h.logger.Error("authorize project", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return nil, false
	}
	return p, true
}
