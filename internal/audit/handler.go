package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/pkg/response"
)

// Handler exposes the activity feed.
type Handler struct {
	repo     *Repository
	gate     *authz.Gate
	recorder *Recorder
	logger   *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(repo *Repository, gate *authz.Gate, recorder *Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, gate: gate, recorder: recorder, logger: logger}
}

// RecordRequest is the body for POST /activity. The workspace id comes from
// the client here, so membership is re-checked before recording.
type RecordRequest struct {
	WorkspaceID uuid.UUID              `json:"workspace_id" binding:"required"`
	Action      string                 `json:"action" binding:"required,max=100"`
	EntityType  string                 `json:"entity_type" binding:"required,max=50"`
	EntityID    *uuid.UUID             `json:"entity_id"`
	OldData     map[string]interface{} `json:"old_data"`
	NewData     map[string]interface{} `json:"new_data"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// List handles GET /activity. Entries are scoped to the caller's accepted
// workspaces; filters narrow within that scope, never beyond it.
func (h *Handler) List(c *gin.Context) {
	userID := identity.UserID(c)
	allowed, err := h.gate.AllowedWorkspaces(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("resolve workspaces", zap.Error(err))
		response.Internal(c, "failed to load activity")
		return
	}

	var f Filter
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := c.Query("entity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid entity_id")
			return
		}
		f.EntityID = &id
	}
	if v := c.Query("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid project_id")
			return
		}
		f.ProjectID = &id
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

	list, err := h.repo.ListForWorkspaces(c.Request.Context(), allowed, f)
	if err != nil {
		h.logger.Error("list activity", zap.Error(err))
		response.Internal(c, "failed to load activity")
		return
	}
	response.OK(c, list)
}

// Record handles POST /activity. Deliberate recording into a workspace the
// caller does not belong to is a 403, not a 404: the client named the
// workspace explicitly rather than addressing a resource.
func (h *Handler) Record(c *gin.Context) {
	userID := identity.UserID(c)
	var body RecordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "workspace_id, action and entity_type required")
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

	h.recorder.Record(Entry{
		WorkspaceID: body.WorkspaceID,
		ActorID:     userID,
		Action:      body.Action,
		EntityType:  body.EntityType,
		EntityID:    body.EntityID,
		Old:         body.OldData,
		New:         body.NewData,
		Metadata:    body.Metadata,
	})
	response.Created(c, gin.H{"recorded": true})
}
