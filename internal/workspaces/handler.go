package workspaces

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/audit"
	"github.com/nerlude/backend/internal/authz"
	"github.com/nerlude/backend/internal/identity"
	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/queue"
	"github.com/nerlude/backend/pkg/response"
)

// UserLookup finds the invitee account for invitations.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler handles workspace HTTP endpoints.
type Handler struct {
	repo     *Repository
	gate     *authz.Gate
	users    UserLookup
	recorder *audit.Recorder
	jobs     *queue.Queue
	logger   *zap.Logger
}

// NewHandler creates a workspaces handler.
func NewHandler(repo *Repository, gate *authz.Gate, users UserLookup, recorder *audit.Recorder, jobs *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, gate: gate, users: users, recorder: recorder, jobs: jobs, logger: logger}
}

// CreateRequest is the body for POST /workspaces.
type CreateRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
	Type string `json:"workspace_type"`
}

// InviteRequest is the body for POST /workspaces/:id/invitations.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// AcceptRequest is the body for POST /invitations/accept.
type AcceptRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" binding:"required"`
}

// List handles GET /workspaces. Returns the caller's accepted workspaces
// with their role.
func (h *Handler) List(c *gin.Context) {
	userID := identity.UserID(c)
	list, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list workspaces", zap.Error(err))
		response.Internal(c, "failed to load workspaces")
		return
	}
	if list == nil {
		list = []WorkspaceWithRole{}
	}
	response.OK(c, list)
}

// Create handles POST /workspaces. Any authenticated identity may create a
// workspace; the creator becomes owner.
func (h *Handler) Create(c *gin.Context) {
	userID := identity.UserID(c)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	wsType := models.WorkspaceTeam
	switch body.Type {
	case "", string(models.WorkspaceTeam):
	case string(models.WorkspacePersonal):
		wsType = models.WorkspacePersonal
	default:
		response.BadRequest(c, "invalid workspace_type")
		return
	}

	ws, err := h.repo.Create(c.Request.Context(), body.Name, wsType, userID)
	if err != nil {
		h.logger.Error("create workspace", zap.Error(err))
		response.Internal(c, "failed to create workspace")
		return
	}

	h.recorder.Record(audit.Entry{
		WorkspaceID: ws.ID,
		ActorID:     userID,
		Action:      models.ActionWorkspaceCreated,
		EntityType:  "workspace",
		EntityID:    &ws.ID,
		New:         ws,
	})
	response.Created(c, ws)
}

// ListMembers handles GET /workspaces/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	workspaceID, ok := h.requireMember(c)
	if !ok {
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), workspaceID)
	if err != nil {
		h.logger.Error("list members", zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// Invite handles POST /workspaces/:id/invitations. Owner or admin only.
// Creates a pending membership; the invitee gains no access until accepting.
func (h *Handler) Invite(c *gin.Context) {
	workspaceID, ok := h.requireRole(c, models.RoleOwner, models.RoleAdmin)
	if !ok {
		return
	}
	var body InviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}
	role := models.RoleMember
	switch body.Role {
	case "", models.RoleMember:
	case models.RoleAdmin:
		role = models.RoleAdmin
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	invitee, err := h.users.GetByEmail(c.Request.Context(), body.Email)
	if err != nil {
		response.NotFound(c, "no account with this email")
		return
	}

	m, err := h.repo.Invite(c.Request.Context(), workspaceID, invitee.ID, role)
	if err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			response.Conflict(c, "user is already a member or invited")
			return
		}
		h.logger.Error("invite member", zap.Error(err))
		response.Internal(c, "failed to invite member")
		return
	}

	actorID := identity.UserID(c)
	h.recorder.Record(audit.Entry{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      models.ActionMemberInvited,
		EntityType:  "membership",
		EntityID:    &m.ID,
		Metadata:    map[string]interface{}{"invitee_id": invitee.ID.String(), "role": role},
	})
	if err := h.jobs.EnqueueNotification(c.Request.Context(), queue.NotificationPayload{
		UserID: invitee.ID,
		Kind:   "workspace_invitation",
		Title:  "You have been invited to a workspace",
	}); err != nil {
		h.logger.Warn("enqueue invite notification", zap.Error(err))
	}
	response.Created(c, m)
}

// AcceptInvitation handles POST /invitations/accept.
func (h *Handler) AcceptInvitation(c *gin.Context) {
	userID := identity.UserID(c)
	var body AcceptRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "workspace_id required")
		return
	}
	m, err := h.repo.AcceptInvitation(c.Request.Context(), body.WorkspaceID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "no pending invitation")
			return
		}
		h.logger.Error("accept invitation", zap.Error(err))
		response.Internal(c, "failed to accept invitation")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: m.WorkspaceID,
		ActorID:     userID,
		Action:      models.ActionInviteAccepted,
		EntityType:  "membership",
		EntityID:    &m.ID,
	})
	response.OK(c, m)
}

// RemoveMember handles DELETE /workspaces/:id/members/:userID. Owner or
// admin only; the owner membership cannot be removed.
func (h *Handler) RemoveMember(c *gin.Context) {
	workspaceID, ok := h.requireRole(c, models.RoleOwner, models.RoleAdmin)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.RemoveMember(c.Request.Context(), workspaceID, targetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "member not found")
			return
		}
		h.logger.Error("remove member", zap.Error(err))
		response.Internal(c, "failed to remove member")
		return
	}
	h.recorder.Record(audit.Entry{
		WorkspaceID: workspaceID,
		ActorID:     identity.UserID(c),
		Action:      models.ActionMemberRemoved,
		EntityType:  "membership",
		Metadata:    map[string]interface{}{"removed_user_id": targetID.String()},
	})
	response.NoContent(c)
}

// requireMember parses :id and gates on membership. Non-members get 404, not
// 403: whether the workspace exists is itself tenant data.
func (h *Handler) requireMember(c *gin.Context) (uuid.UUID, bool) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return uuid.Nil, false
	}
	d, err := h.gate.Authorize(c.Request.Context(), identity.UserID(c), workspaceID)
	if err != nil {
		h.logger.Error("authorize", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return uuid.Nil, false
	}
	if !d.Allowed {
		response.NotFound(c, "workspace not found")
		return uuid.Nil, false
	}
	return workspaceID, true
}

func (h *Handler) requireRole(c *gin.Context, roles ...string) (uuid.UUID, bool) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return uuid.Nil, false
	}
	d, err := h.gate.Authorize(c.Request.Context(), identity.UserID(c), workspaceID)
	if err != nil {
		h.logger.Error("authorize", zap.Error(err))
		response.Internal(c, "authorization check failed")
		return uuid.Nil, false
	}
	if !d.Allowed {
		response.NotFound(c, "workspace not found")
		return uuid.Nil, false
	}
	for _, role := range roles {
		if d.Role == role {
			return workspaceID, true
		}
	}
	response.Forbidden(c, "insufficient role in this workspace")
	return uuid.Nil, false
}
