package stacks

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/internal/projects"
	"github.com/nerlude/backend/pkg/response"
)

// Handler handles stack endpoints nested under a project.
type Handler struct {
	repo     *Repository
	access   *projects.Access
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a stacks handler.
func NewHandler(repo *Repository, access *projects.Access, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, access: access, recorder: recorder, logger: logger}
}

// CreateRequest is the body for POST /projects/:id/stacks.
type CreateRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Category string `json:"category" binding:"max=100"`
	Version  string `json:"version" binding:"max=50"`
}

// List handles GET /projects/:id/stacks.
func (h *Handler) List(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	list, err := h.repo.ListForProject(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list stacks", zap.Error(err))
		response.Internal(c, "failed to load stack")
		return
	}
	response.OK(c, list)
}

// Create handles POST /projects/:id/stacks.
func (h *Handler) Create(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	s, err := h.repo.Create(c.Request.Context(), p.WorkspaceID, p.ID, body.Name, body.Category, body.Version)
	if err != nil {
		h.logger.Error("create stack entry", zap.Error(err))
		response.Internal(c, "failed to create stack entry")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionStackCreated,
		EntityType:  "stack",
		EntityID:    &s.ID,
		New:         s,
		Metadata:    map[string]interface{}{"project_id": p.ID.String()},
	})
	response.Created(c, s)
}

// Delete handles DELETE /projects/:id/stacks/:stackID.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	stackID, err := uuid.Parse(c.Param("stackID"))
	if err != nil {
		response.BadRequest(c, "invalid stack id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID, stackID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "stack entry not found")
			return
		}
		h.logger.Error("delete stack entry", zap.Error(err))
		response.Internal(c, "failed to delete stack entry")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionStackDeleted,
		EntityType:  "stack",
		EntityID:    &stackID,
		Metadata:    map[string]interface{}{"project_id": p.ID.String()},
	})
	response.NoContent(c)
}

func (h *Handler) requireProject(c *gin.Context) (*models.Project, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return nil, false
	}
	p, err := h.access.Require(c.Request.Context(), identity.UserID(c), id)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			response.NotFound(c, "project not found")
			return nil, false
		}
		h.logger.Error("authorize project", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return nil, false
	}
	return p, true
}
