package assets

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

// Handler handles asset endpoints nested under a project.
type Handler struct {
	repo     *Repository
	access   *projects.Access
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates an assets handler.
func NewHandler(repo *Repository, access *projects.Access, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, access: access, recorder: recorder, logger: logger}
}

// CreateRequest is the body for POST /projects/:id/assets.
type CreateRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
	Kind string `json:"kind" binding:"max=100"`
	URL  string `json:"url" binding:"omitempty,url,max=2048"`
}

// List handles GET /projects/:id/assets.
func (h *Handler) List(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	list, err := h.repo.ListForProject(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list assets", zap.Error(err))
		response.Internal(c, "failed to load assets")
		return
	}
	response.OK(c, list)
}

// Create handles POST /projects/:id/assets.
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
	a, err := h.repo.Create(c.Request.Context(), p.WorkspaceID, p.ID, body.Name, body.Kind, body.URL)
	if err != nil {
		h.logger.Error("create asset", zap.Error(err))
		response.Internal(c, "failed to create asset")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionAssetCreated,
		EntityType:  "asset",
		EntityID:    &a.ID,
		New:         a,
		Metadata:    map[string]interface{}{"project_id": p.ID.String()},
	})
	response.Created(c, a)
}

// Delete handles DELETE /projects/:id/assets/:assetID.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.requireProject(c)
	if !ok {
		return
	}
	assetID, err := uuid.Parse(c.Param("assetID"))
	if err != nil {
		response.BadRequest(c, "invalid asset id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID, assetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "asset not found")
			return
		}
		h.logger.Error("delete asset", zap.Error(err))
		response.Internal(c, "failed to delete asset")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: p.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionAssetDeleted,
		EntityType:  "asset",
		EntityID:    &assetID,
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
