package services

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/internal/projects"
	"github.com/nerlude/backend/pkg/response"
)

const dateLayout = "2006-01-02"

// Handler handles service HTTP endpoints.
type Handler struct {
	repo     *Repository
	access   *projects.Access
	gate     *authz.Gate
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a services handler.
func NewHandler(repo *Repository, access *projects.Access, gate *authz.Gate, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, access: access, gate: gate, recorder: recorder, logger: logger}
}

// Request is the body for POST and PUT on services. RenewalDate is a
// YYYY-MM-DD date or null.
type Request struct {
	WorkspaceID    uuid.UUID  `json:"workspace_id" binding:"required"`
	ProjectID      *uuid.UUID `json:"project_id"`
	Name           string     `json:"name" binding:"required,min=1,max=255"`
	Provider       string     `json:"provider" binding:"max=255"`
	Category       string     `json:"category" binding:"max=100"`
	MonthlyCost    float64    `json:"monthly_cost" binding:"gte=0"`
	RenewalDate    *string    `json:"renewal_date"`
	CredentialHint string     `json:"credential_hint" binding:"max=255"`
}

func (req *Request) fields() (Fields, error) {
	f := Fields{
		ProjectID:      req.ProjectID,
		Name:           req.Name,
		Provider:       req.Provider,
		Category:       req.Category,
		MonthlyCost:    req.MonthlyCost,
		CredentialHint: req.CredentialHint,
	}
	if req.RenewalDate != nil && *req.RenewalDate != "" {
		d, err := time.Parse(dateLayout, *req.RenewalDate)
		if err != nil {
			return Fields{}, errors.New("renewal_date must be YYYY-MM-DD")
		}
		f.RenewalDate = &d
	}
	return f, nil
}

// List handles GET /services across the caller's accepted workspaces.
func (h *Handler) List(c *gin.Context) {
	userID := identity.UserID(c)
	allowed, err := h.gate.AllowedWorkspaces(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("resolve workspaces", zap.Error(err))
		response.Internal(c, "failed to load services")
		return
	}

	var f Filter
	if v := c.Query("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid project_id")
			return
		}
		f.ProjectID = &id
	}
	f.Category = c.Query("category")
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

	list, err := h.repo.ListForWorkspaces(c.Request.Context(), allowed, f)
	if err != nil {
		h.logger.Error("list services", zap.Error(err))
		response.Internal(c, "failed to load services")
		return
	}
	response.OK(c, list)
}

// Create handles POST /services. The workspace id is caller-supplied, so a
// non-member gets 403. A project reference must live in the same workspace.
func (h *Handler) Create(c *gin.Context) {
	userID := identity.UserID(c)
	var body Request
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "workspace_id and name required")
		return
	}
	f, err := body.fields()
	if err != nil {
		response.BadRequest(c, err.Error())
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
	if f.ProjectID != nil {
		p, err := h.access.Require(c.Request.Context(), userID, *f.ProjectID)
		if err != nil || p.WorkspaceID != body.WorkspaceID {
			response.BadRequest(c, "project not found in this workspace")
			return
		}
	}

	s, err := h.repo.Create(c.Request.Context(), body.WorkspaceID, f)
	if err != nil {
		h.logger.Error("create service", zap.Error(err))
		response.Internal(c, "failed to create service")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: s.WorkspaceID,
		ActorID:     userID,
		Action:      models.ActionServiceCreated,
		EntityType:  "service",
		EntityID:    &s.ID,
		New:         s,
		Metadata:    projectMeta(s.ProjectID),
	})
	response.Created(c, s)
}

// Get handles GET /services/:id.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.requireService(c)
	if !ok {
		return
	}
	response.OK(c, s)
}

// Update handles PUT /services/:id. The service stays in its workspace; the
// body's workspace_id must match.
func (h *Handler) Update(c *gin.Context) {
	old, ok := h.requireService(c)
	if !ok {
		return
	}
	var body Request
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "workspace_id and name required")
		return
	}
	if body.WorkspaceID != old.WorkspaceID {
		response.BadRequest(c, "service cannot move between workspaces")
		return
	}
	f, err := body.fields()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if f.ProjectID != nil {
		p, err := h.access.Require(c.Request.Context(), identity.UserID(c), *f.ProjectID)
		if err != nil || p.WorkspaceID != old.WorkspaceID {
			response.BadRequest(c, "project not found in this workspace")
			return
		}
	}

	s, err := h.repo.Update(c.Request.Context(), old.ID, f)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "service not found")
			return
		}
		h.logger.Error("update service", zap.Error(err))
		response.Internal(c, "failed to update service")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: s.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionServiceUpdated,
		EntityType:  "service",
		EntityID:    &s.ID,
		Old:         old,
		New:         s,
		Metadata:    projectMeta(s.ProjectID),
	})
	response.OK(c, s)
}

// Delete handles DELETE /services/:id.
func (h *Handler) Delete(c *gin.Context) {
	s, ok := h.requireService(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), s.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "service not found")
			return
		}
		h.logger.Error("delete service", zap.Error(err))
		response.Internal(c, "failed to delete service")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: s.WorkspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionServiceDeleted,
		EntityType:  "service",
		EntityID:    &s.ID,
		Old:         s,
		Metadata:    projectMeta(s.ProjectID),
	})
	response.NoContent(c)
}

// requireService parses :id, loads the service and gates on membership in
// its workspace with the same masking as projects.
func (h *Handler) requireService(c *gin.Context) (*models.Service, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service id")
		return nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "service not found")
			return nil, false
		}
		h.logger.Error("load service", zap.Error(err))
		response.Internal(c, "failed to load service")
		return nil, false
	}
	d, err := h.gate.Authorize(c.Request.Context(), identity.UserID(c), s.WorkspaceID)
	if err != nil {
		h.logger.Error("authorize", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return nil, false
	}
	if !d.Allowed {
		response.NotFound(c, "service not found")
		return nil, false
	}
	return s, true
}

// projectMeta threads the project reference into the activity feed so
// project-filtered listings pick the entry up.
func projectMeta(projectID *uuid.UUID) map[string]interface{} {
	if projectID == nil {
		return nil
	}
	return map[string]interface{}{"project_id": projectID.String()}
}
